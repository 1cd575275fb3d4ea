package storage

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PromptCredentials asks for a username and password.
func PromptCredentials(scanner *bufio.Scanner) (username, password string) {
	fmt.Print("Enter username: ")
	scanner.Scan()
	username = strings.TrimSpace(scanner.Text())

	fmt.Print("Enter password: ")
	scanner.Scan()
	password = scanner.Text()

	return username, password
}

// PromptAudioFile asks for the path of a recording and checks that it is a
// readable regular file. Returns "" when it is not.
func PromptAudioFile(scanner *bufio.Scanner) string {
	fmt.Print("Enter path to recording (.webm): ")
	scanner.Scan()
	path := strings.TrimSpace(scanner.Text())
	if path == "" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to read file %q: %v\n", path, err)
		return ""
	}
	if info.IsDir() {
		fmt.Printf("Failed to read file %q: is a directory\n", path)
		return ""
	}
	return path
}
