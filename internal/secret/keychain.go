package secret

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const keychainService = "circuitflow-archive"

// runFunc executes a credential helper, feeding stdin when non-nil.
type runFunc func(stdin []byte, name string, args ...string) ([]byte, error)

func runCommand(stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", name, strings.TrimSpace(stderr.String()), err)
	}
	return out, nil
}

// KeychainStore keeps archive passwords in the OS credential store: the
// macOS Keychain through `security`, or the Secret Service through
// `secret-tool` on Linux. Other platforms have no backend, so Get finds
// nothing and Set fails.
type KeychainStore struct {
	service string
	goos    string
	run     runFunc
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService, goos: runtime.GOOS, run: runCommand}
}

// Set stores value under key, replacing an existing entry.
func (k *KeychainStore) Set(key string, value []byte) error {
	var err error
	switch k.goos {
	case "darwin":
		_, err = k.run(nil, "security", "add-generic-password", "-U",
			"-a", key, "-s", k.service, "-w", string(value))
	case "linux":
		_, err = k.run(value, "secret-tool", "store",
			"--label", "CircuitFlow "+key, "service", k.service, "account", key)
	default:
		return fmt.Errorf("keychain set %s: no credential store on %s", key, k.goos)
	}
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value, or nil when the entry or the helper is
// missing. The archive then falls back to a password-less connection.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch k.goos {
	case "darwin":
		out, err = k.run(nil, "security", "find-generic-password", "-a", key, "-s", k.service, "-w")
	case "linux":
		out, err = k.run(nil, "secret-tool", "lookup", "service", k.service, "account", key)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, nil
	}
	v := strings.TrimRight(string(out), "\r\n")
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

// Delete removes the entry. A missing entry is not an error.
func (k *KeychainStore) Delete(key string) error {
	switch k.goos {
	case "darwin":
		k.run(nil, "security", "delete-generic-password", "-a", key, "-s", k.service)
	case "linux":
		k.run(nil, "secret-tool", "clear", "service", k.service, "account", key)
	}
	return nil
}
