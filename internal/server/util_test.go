package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loykin/appman/internal/catalog"
)

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"/":         "",
		"manager":   "/manager",
		"/manager":  "/manager",
		"/manager/": "/manager",
		"  /m  ":    "/m",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeBase(in), "input %q", in)
	}
}

func TestIsSafeName(t *testing.T) {
	good := []string{"billing", "svc-1", "a.b_c", "X9"}
	for _, s := range good {
		assert.True(t, isSafeName(s), s)
	}
	bad := []string{"", "a/b", `a\b`, "a..b", "sp ace", "weird$"}
	for _, s := range bad {
		assert.False(t, isSafeName(s), s)
	}
}

func TestPayloadValidate(t *testing.T) {
	dir := t.TempDir()
	p := appPayload{Name: "ok", Path: dir, Entry: "m:app", Port: 8080}
	assert.Empty(t, p.validate())

	p = appPayload{Name: "bad name", Path: dir, Entry: "m:app", Port: 8080}
	assert.Len(t, p.validate(), 1)

	p = appPayload{Name: "ok", Path: dir, Entry: "noapp", Port: 99999}
	assert.Len(t, p.validate(), 2)
}

func TestToLaunchSpecSplitsArgs(t *testing.T) {
	a := catalog.App{Name: "svc", Host: "127.0.0.1", Port: 9000, Path: "/srv/svc", Entry: "m:app", Args: "--workers 2  --reload"}
	spec := toLaunchSpec(a)
	assert.Equal(t, []string{"--workers", "2", "--reload"}, spec.Args)
	assert.Equal(t, "/srv/svc", spec.WorkDir)

	a.Args = ""
	assert.Nil(t, toLaunchSpec(a).Args)
}
