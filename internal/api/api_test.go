package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/starford/kinship/internal/familyservice"
	"github.com/starford/kinship/internal/familytree"
	"github.com/starford/kinship/internal/index"
	"github.com/starford/kinship/internal/storage"
)

// testEnv sets up a temp family file, SQLite index, service, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*familyservice.Service, http.Handler, storage.Provider) {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tree := familytree.New(store, "family_tree.csv", logger)
	tree.Load()

	db, err := index.Open(filepath.Join(dir, "kinship.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := familyservice.NewService(tree, db, logger)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router, store
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	for _, n := range []string{"Al", "Bob", "Cy"} {
		if w := do(t, h, http.MethodPost, "/people", AddPersonRequest{Name: n}); w.Code != http.StatusCreated {
			t.Fatalf("add %s: status = %d, body = %s", n, w.Code, w.Body.String())
		}
	}
	for _, c := range []ConnectRequest{
		{Name1: "Al", Relationship: "father", Name2: "Bob"},
		{Name1: "Cy", Relationship: "son", Name2: "Bob"},
	} {
		if w := do(t, h, http.MethodPost, "/connections", c); w.Code != http.StatusCreated {
			t.Fatalf("connect: status = %d, body = %s", w.Code, w.Body.String())
		}
	}
}

func TestAddAndGetPerson(t *testing.T) {
	_, router, _ := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/people/Bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var p PersonDetail
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Name != "Bob" || len(p.Relationships) != 2 {
		t.Errorf("person = %+v", p)
	}

	w = do(t, router, http.MethodGet, "/people/Al", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if len(p.Relatives) != 1 || p.Relatives[0].Owner != "Bob" || p.Relatives[0].Type != "father" {
		t.Errorf("relatives of Al = %+v", p.Relatives)
	}
}

func TestAddDuplicatePerson(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/people", AddPersonRequest{Name: "Al"}); w.Code != http.StatusCreated {
		t.Fatalf("first add = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/people", AddPersonRequest{Name: "Al"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate add = %d, want 409", w.Code)
	}
}

func TestAddPersonBadRequests(t *testing.T) {
	_, router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/people", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/people", AddPersonRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", w.Code)
	}
}

func TestConnectMissingPersonLeavesFile(t *testing.T) {
	_, router, store := testEnv(t, "")
	seed(t, router)
	before, _ := store.Read("family_tree.csv")

	w := do(t, router, http.MethodPost, "/connections", ConnectRequest{Name1: "Ghost", Relationship: "son", Name2: "Bob"})
	if w.Code != http.StatusNotFound {
		t.Errorf("connect missing = %d, want 404", w.Code)
	}
	after, _ := store.Read("family_tree.csv")
	if !bytes.Equal(before, after) {
		t.Errorf("file changed: %q -> %q", before, after)
	}
}

func TestAddRelationship(t *testing.T) {
	_, router, store := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodPost, "/people/Cy/relationships", AddRelationshipRequest{Type: "daughter"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add relationship = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := store.Read("family_tree.csv")
	if !bytes.Contains(data, []byte("Cy,daughter,Cy\n")) {
		t.Errorf("file = %q, want self-referential edge", data)
	}

	w = do(t, router, http.MethodPost, "/people/Ghost/relationships", AddRelationshipRequest{Type: "son"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing person = %d, want 404", w.Code)
	}
}

func TestCountsAndFather(t *testing.T) {
	_, router, _ := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/people/Bob/counts/son", nil)
	var c CountResponse
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	if w.Code != http.StatusOK || c.Count != 1 {
		t.Errorf("count sons = %d %+v", w.Code, c)
	}

	w = do(t, router, http.MethodGet, "/people/Ghost/counts/son", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("count for missing = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodGet, "/people/Bob/father", nil)
	var f FatherResponse
	_ = json.Unmarshal(w.Body.Bytes(), &f)
	if w.Code != http.StatusOK || f.Father != "Al" {
		t.Errorf("father = %d %+v", w.Code, f)
	}

	w = do(t, router, http.MethodGet, "/people/Al/father", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("no father = %d, want 404", w.Code)
	}
}

func TestEncodedNames(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/people", AddPersonRequest{Name: "Smith, John"}); w.Code != http.StatusCreated {
		t.Fatalf("add = %d", w.Code)
	}
	w := do(t, router, http.MethodGet, "/people/Smith%2C%20John", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get encoded name = %d, want 200", w.Code)
	}
}

func TestListSearchGraph(t *testing.T) {
	_, router, _ := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/people", nil)
	var list PersonListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 3 || list.People[0].Name != "Al" || list.People[1].Relationships != 2 {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/search?q=bo", nil)
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if w.Code != http.StatusOK || len(sr.Results) != 1 || sr.Results[0].Name != "Bob" {
		t.Errorf("search = %d %+v", w.Code, sr)
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
	for _, limit := range []string{"abc", "-1", "0"} {
		if w := do(t, router, http.MethodGet, "/search?q=bo&limit="+limit, nil); w.Code != http.StatusBadRequest {
			t.Errorf("search with limit=%s = %d, want 400", limit, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/search?q=o&limit=1", nil); w.Code != http.StatusOK {
		t.Errorf("search with limit=1 = %d, want 200", w.Code)
	} else {
		var limited SearchResponse
		_ = json.Unmarshal(w.Body.Bytes(), &limited)
		if len(limited.Results) != 1 {
			t.Errorf("limit=1 returned %d results", len(limited.Results))
		}
	}

	w = do(t, router, http.MethodGet, "/graph", nil)
	var g GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &g)
	if len(g.Nodes) != 3 || len(g.Links) != 2 {
		t.Errorf("graph = %+v", g)
	}
}

func TestAuthToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret")

	if w := do(t, router, http.MethodGet, "/people", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/people", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/people", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}
