package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/route"

	"github.com/google/go-cmp/cmp"
)

func TestTranslateWithoutResources(t *testing.T) {
	opts := &TranslateOptions{Method: "GET", Resource: "users", Many: "posts, posts.comments"}
	res, err := runTranslate(opts, `/api/users/7?where={"posts.title":{"$starts":"Go"}}&limit=5`)
	if err != nil {
		t.Fatalf("runTranslate: %v", err)
	}
	if diff := cmp.Diff(route.Route{Type: route.ReadOne, ResourceID: "7"}, res.Route); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	want := prisma.Where{"posts": prisma.Where{"some": prisma.Where{"title": prisma.Where{"startsWith": "Go"}}}}
	if diff := cmp.Diff(want, res.Query.Where); diff != "" {
		t.Fatalf("where mismatch (-want +got):\n%s", diff)
	}
	if res.Query.Take == nil || *res.Query.Take != 5 {
		t.Fatalf("take = %v", res.Query.Take)
	}
	if res.SQL != "" {
		t.Fatalf("no SQL expected without resources, got %s", res.SQL)
	}
}

func TestTranslateNeedsResource(t *testing.T) {
	if _, err := runTranslate(&TranslateOptions{Method: "GET"}, "/api/users"); err == nil {
		t.Fatalf("expected error without a resource")
	}
}

func TestTranslateWithResources(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"users.yml": "columns: [name, email]\nrelations:\n  posts:\n    type: has_many\n    model: posts\n",
		"posts.yml": "columns: [title, user_id]\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"translate", "--resources", dir, "/api/users?select=name&limit=2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var got struct {
		Resource string `json:"resource"`
		Route    struct {
			Type string `json:"type"`
		} `json:"route"`
		SQL string `json:"sql"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got.Resource != "users" || got.Route.Type != "READ_ALL" {
		t.Fatalf("unexpected resource/route: %+v", got)
	}
	if want := `SELECT "t0"."id", "t0"."name" FROM "users" AS "t0" LIMIT 2`; got.SQL != want {
		t.Fatalf("sql:\n got %s\nwant %s", got.SQL, want)
	}
}

func TestTranslateRejectsUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.yml"), []byte("columns: [name]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	opts := &TranslateOptions{Method: "GET", ResourcesDir: dir, MaxDepth: 3}
	if _, err := runTranslate(opts, `/api/users?where={"secret":1}`); err == nil {
		t.Fatalf("expected error for an unknown column")
	}
}
