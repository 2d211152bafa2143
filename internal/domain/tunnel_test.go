package domain

import "testing"

func TestTunnel_AllowsMethod(t *testing.T) {
	tunnel := &Tunnel{AllowedMethods: []string{"GET", "POST"}}

	if !tunnel.AllowsMethod("GET") {
		t.Fatal("expected GET to be allowed")
	}
	if tunnel.AllowsMethod("DELETE") {
		t.Fatal("expected DELETE to be denied")
	}
}

func TestTunnel_AllowsMethod_Wildcard(t *testing.T) {
	tunnel := &Tunnel{AllowedMethods: []string{"*"}}

	if !tunnel.AllowsMethod("DELETE") {
		t.Fatal("expected wildcard to allow any method")
	}
}

func TestTunnel_AllowsPath_EmptyAllowsAll(t *testing.T) {
	tunnel := &Tunnel{}

	if !tunnel.AllowsPath("/anything") {
		t.Fatal("expected empty AllowedPaths to allow any path")
	}
}

func TestTunnel_AllowsPath_PrefixMatch(t *testing.T) {
	tunnel := &Tunnel{AllowedPaths: []string{"/deploy"}}

	if !tunnel.AllowsPath("/deploy/staging") {
		t.Fatal("expected a path under an allowed prefix to be allowed")
	}
	if tunnel.AllowsPath("/secrets") {
		t.Fatal("expected a path outside the allowed prefix to be denied")
	}
}

func TestTunnel_IsPipeline(t *testing.T) {
	plain := &Tunnel{}
	if plain.IsPipeline() {
		t.Fatal("expected a tunnel with no Pipeline to not be a pipeline")
	}

	empty := &Tunnel{Pipeline: &PipelineDef{}}
	if empty.IsPipeline() {
		t.Fatal("expected a Pipeline with zero steps to not count as a pipeline")
	}

	withSteps := &Tunnel{Pipeline: &PipelineDef{Steps: []PipelineStep{{Command: "build"}}}}
	if !withSteps.IsPipeline() {
		t.Fatal("expected a Pipeline with steps to be a pipeline tunnel")
	}
}
