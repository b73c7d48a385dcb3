// Command ninja-authctl is the operator tool for ninja-auth.
//
//	ninja-authctl hash      prompt for a password and print its digest
//	ninja-authctl secret    print a random JWT_SECRET
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "ninja-authctl:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: ninja-authctl <hash|secret> [flags]")
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "hash":
		return runHash(args[1:], stdin, stdout, stderr)
	case "secret":
		return runSecret(args[1:], stdout)
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runHash(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := readPassword(stdin, stderr)
	if err != nil {
		return err
	}
	hasher, err := ninjaauth.NewArgon2Hasher(ninjaauth.DefaultArgon2Params())
	if err != nil {
		return err
	}
	digest, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, digest)
	return nil
}

// readPassword prompts twice on a terminal. Piped input is read as a
// single line.
func readPassword(stdin *os.File, stderr io.Writer) (string, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(stdin)
	}
	fmt.Fprint(stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runSecret(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("secret", flag.ContinueOnError)
	size := fs.Int("bytes", 32, "number of random bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size < 16 {
		return fmt.Errorf("a secret needs at least 16 bytes")
	}
	secret, err := ninjaauth.GenerateSecureToken(*size)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, secret)
	return nil
}
