package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

// ResolveValue turns a base_url or api_key setting into the value to use.
// Supported references:
//
//	op://vault/item/field[?account=...]  1Password secret, via `op read`
//	$(command)                           trimmed stdout of `sh -c command`
//	${VAR} or $VAR                       environment variable
//
// Anything else is taken literally.
func ResolveValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case strings.HasPrefix(value, "op://"):
		return readOnePassword(value)
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		out, err := output("sh", "-c", value[2:len(value)-1])
		if err != nil {
			return "", fmt.Errorf("command failed: %w", err)
		}
		return out, nil
	case strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}"):
		return os.Getenv(value[2 : len(value)-1]), nil
	case strings.HasPrefix(value, "$"):
		return os.Getenv(value[1:]), nil
	default:
		return value, nil
	}
}

func readOnePassword(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("1password: invalid reference %s: %w", ref, err)
	}
	item := "op://" + u.Host + u.Path
	args := []string{"read", item}
	if account := u.Query().Get("account"); account != "" {
		args = append(args, "--account", account)
	}

	out, err := output("op", args...)
	if err != nil {
		return "", fmt.Errorf("1password: read %s: %w (is the op CLI installed and signed in?)", item, err)
	}
	return out, nil
}

// output runs name and returns its trimmed stdout. A failing command's
// stderr becomes the error text.
func output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", errors.New(strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
