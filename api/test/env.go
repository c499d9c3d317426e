package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/galvarado/tienda/api"
	"github.com/galvarado/tienda/config"
	"github.com/galvarado/tienda/core/product"
	"github.com/galvarado/tienda/core/user"
	"github.com/galvarado/tienda/database"
	"github.com/galvarado/tienda/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TestEnv boots a throwaway Postgres in Docker, migrates it and serves the
// whole API over an httptest server. Tests are skipped when Docker is not
// reachable.
type TestEnv struct {
	DB     *sqlx.DB
	Server *httptest.Server
	URL    string
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("skipping, docker pool unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("skipping, docker daemon unreachable: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=tienda",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	res.Expire(300)

	cfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       net.JoinHostPort("localhost", res.GetPort("5432/tcp")),
		Name:       "tienda",
		DisableTLS: true,
	}

	var db *sqlx.DB
	pool.MaxWait = 60 * time.Second
	if err := pool.Retry(func() error {
		db, err = database.Open(cfg)
		return err
	}); err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	mux := api.APIMux(api.APIConfig{
		Log: log,
		DB:  db,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &TestEnv{
		DB:     db,
		Server: srv,
		URL:    srv.URL,
	}
}

// Do sends a JSON request, decodes the JSON response into out when it is
// non-nil, and returns the status code.
func (e *TestEnv) Do(t *testing.T, method string, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, e.URL+path, rd)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := e.Server.Client().Do(r)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decoding response of %s %s: %v", method, path, err)
		}
	}

	return w.StatusCode
}

// CreateUser seeds a user directly, standing in for the user-management
// service that owns registration.
func (e *TestEnv) CreateUser(t *testing.T) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        validate.GenerateID(),
		Name:      "Ana",
		Email:     fmt.Sprintf("%s@example.com", validate.GenerateID()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Create(context.Background(), e.DB, usr); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	return usr
}

func (e *TestEnv) CreateProduct(t *testing.T, name string, price string, stock int) product.Product {
	t.Helper()

	in := product.ProductNew{
		Name:        name,
		Description: name + " description",
		ImageURL:    "https://img.example.com/" + name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
	}

	var prod product.Product
	if code := e.Do(t, http.MethodPost, "/products", in, &prod); code != http.StatusCreated {
		t.Fatalf("creating product: status code %d", code)
	}

	return prod
}

func (e *TestEnv) FetchProduct(t *testing.T, productID string) product.Product {
	t.Helper()

	var prod product.Product
	if code := e.Do(t, http.MethodGet, "/products/"+productID, nil, &prod); code != http.StatusOK {
		t.Fatalf("fetching product: status code %d", code)
	}

	return prod
}
