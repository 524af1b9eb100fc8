// Package validation checks user-supplied commands, arguments and paths
// before they reach the filesystem or an external process.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AllowedTypesetters lists the commands the typesetter may be set to.
var AllowedTypesetters = map[string]bool{
	"pdflatex": true,
	"xelatex":  true,
	"lualatex": true,
	"latex":    true,
	"latexmk":  true,
}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	// Check for shell metacharacters that could be used for command injection
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	// Check for path traversal attempts
	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") &&
		!strings.HasPrefix(arg, "/usr/local/bin/") && !strings.HasPrefix(arg, "/Library/TeX/texbin/") {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateCommand checks that command, by its base name, is in the
// allowlist and carries no shell metacharacters.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateTypesetter validates a typesetter command line.
func ValidateTypesetter(command string, args []string) error {
	if err := ValidateCommand(command, AllowedTypesetters); err != nil {
		return err
	}
	for _, arg := range args {
		if err := ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}

// ValidateFileExtension checks filename against a list of extensions,
// ignoring case.
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("file extension '%s' is not allowed", ext)
}

// ValidateOutputPath checks a path semtex is about to write, such as the
// run report.
func ValidateOutputPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	cleanPathLower := strings.ToLower(filepath.Clean(path))
	for _, restricted := range []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/"} {
		if strings.HasPrefix(cleanPathLower, restricted) {
			return fmt.Errorf("access to restricted path denied: %s", path)
		}
	}

	return nil
}
