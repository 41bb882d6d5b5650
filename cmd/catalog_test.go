package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCatalogCommandListsEmbeddedActions(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"catalog"})

	if err := root.Execute(); err != nil {
		t.Fatalf("catalog command error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"ACTION", "search_products", "add_to_cart", "15 actions"} {
		if !strings.Contains(got, want) {
			t.Fatalf("catalog output missing %q:\n%s", want, got)
		}
	}
}

func TestCatalogCommandRejectsBadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("- name: \n  description: nothing\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"catalog", "--file", path})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for catalog without action names")
	}
}

func TestAskRequiresMessage(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}
