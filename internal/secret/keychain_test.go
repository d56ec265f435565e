package secret

import (
	"errors"
	"strings"
	"testing"
)

type call struct {
	stdin string
	argv  string
}

// fakeHelper records invocations and answers lookups from entries.
func fakeHelper(entries map[string]string, calls *[]call) runFunc {
	return func(stdin []byte, name string, args ...string) ([]byte, error) {
		argv := name + " " + strings.Join(args, " ")
		*calls = append(*calls, call{stdin: string(stdin), argv: argv})
		for k, v := range entries {
			if strings.Contains(argv, "account "+k) || strings.Contains(argv, "-a "+k+" ") {
				return []byte(v + "\n"), nil
			}
		}
		return nil, errors.New("item not found")
	}
}

// ─────────────────────────────────────────────────────────────
// KeychainStore
// ─────────────────────────────────────────────────────────────

func TestKeychain_PlatformCommands(t *testing.T) {
	key := ArchiveKey("mysql")
	tests := []struct {
		goos      string
		wantSet   string
		wantStdin string
		wantGet   string
		wantDel   string
	}{
		{
			goos:    "darwin",
			wantSet: "security add-generic-password -U -a archive:mysql -s circuitflow-archive -w s3cret",
			wantGet: "security find-generic-password -a archive:mysql -s circuitflow-archive -w",
			wantDel: "security delete-generic-password -a archive:mysql -s circuitflow-archive",
		},
		{
			goos:      "linux",
			wantSet:   "secret-tool store --label CircuitFlow archive:mysql service circuitflow-archive account archive:mysql",
			wantStdin: "s3cret",
			wantGet:   "secret-tool lookup service circuitflow-archive account archive:mysql",
			wantDel:   "secret-tool clear service circuitflow-archive account archive:mysql",
		},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var calls []call
			k := &KeychainStore{service: keychainService, goos: tt.goos, run: fakeHelper(map[string]string{key: "s3cret"}, &calls)}

			if err := k.Set(key, []byte("s3cret")); err != nil {
				t.Fatal(err)
			}
			got, err := k.Get(key)
			if err != nil || string(got) != "s3cret" {
				t.Fatalf("Get = %q, %v", got, err)
			}
			k.Delete(key)

			if len(calls) != 3 {
				t.Fatalf("expected 3 helper calls, got %d", len(calls))
			}
			if calls[0].argv != tt.wantSet || calls[0].stdin != tt.wantStdin {
				t.Errorf("set ran %q with stdin %q", calls[0].argv, calls[0].stdin)
			}
			if calls[1].argv != tt.wantGet {
				t.Errorf("get ran %q", calls[1].argv)
			}
			if calls[2].argv != tt.wantDel {
				t.Errorf("delete ran %q", calls[2].argv)
			}
		})
	}
}

func TestKeychain_MissingEntryIsEmpty(t *testing.T) {
	var calls []call
	k := &KeychainStore{service: keychainService, goos: "linux", run: fakeHelper(nil, &calls)}
	got, err := k.Get(ArchiveKey("postgres"))
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for a missing entry, got %q, %v", got, err)
	}
}

func TestKeychain_UnsupportedPlatform(t *testing.T) {
	var calls []call
	k := &KeychainStore{service: keychainService, goos: "plan9", run: fakeHelper(nil, &calls)}
	if err := k.Set("x", []byte("y")); err == nil {
		t.Error("expected Set to fail without a credential store")
	}
	if got, err := k.Get("x"); got != nil || err != nil {
		t.Errorf("expected empty Get, got %q, %v", got, err)
	}
	if len(calls) != 0 {
		t.Errorf("expected no helper calls, got %v", calls)
	}
}

func TestKeychain_ResolvesArchivePassword(t *testing.T) {
	const env = "CIRCUITFLOW_TEST_KEYCHAIN"
	t.Setenv(env, "")
	var calls []call
	k := &KeychainStore{service: keychainService, goos: "darwin", run: fakeHelper(map[string]string{ArchiveKey("mongo"): "pw"}, &calls)}
	got, err := Resolve(k, env, ArchiveKey("mongo"))
	if err != nil || got != "pw" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}
