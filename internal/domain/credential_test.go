package domain

import "testing"

func TestCredential_Redacted(t *testing.T) {
	cred := Credential{Key: "wrk_abcdefghijklmnop"}
	if got := cred.Redacted(); got != "wrk_abcd..." {
		t.Fatalf("Redacted: got %q, want %q", got, "wrk_abcd...")
	}
}

func TestCredential_Redacted_ShortKey(t *testing.T) {
	cred := Credential{Key: "short"}
	if got := cred.Redacted(); got != "short..." {
		t.Fatalf("Redacted: got %q, want %q", got, "short...")
	}
}

func TestPipelineRun_IsTerminal(t *testing.T) {
	cases := map[RunStatus]bool{
		RunInProgress: false,
		RunCompleted:  true,
		RunAborted:    true,
		RunFailed:     true,
	}
	for status, want := range cases {
		run := PipelineRun{Status: status}
		if got := run.IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%s): got %v, want %v", status, got, want)
		}
	}
}
