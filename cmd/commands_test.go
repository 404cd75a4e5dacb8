package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/repositories"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
	tu "github.com/desertthunder/botanica/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliHarness struct {
	fake     *tu.FakeBackend
	runner   *Runner
	out      *bytes.Buffer
	sessions *repositories.SessionRepository
	cache    *repositories.SubcategoryCacheRepository
	opts     RunnerOpts
}

// newCLI wires a runner to a fake backend and an in-memory store. input feeds confirmation prompts.
func newCLI(t *testing.T, input string, opts ...tu.FakeOption) *cliHarness {
	t.Helper()

	fake := tu.NewFakeBackend(t, opts...)

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Backend.URL = fake.URL()

	h := &cliHarness{
		fake:     fake,
		out:      &bytes.Buffer{},
		sessions: repositories.NewSessionRepository(db),
		cache:    repositories.NewSubcategoryCacheRepository(db),
	}
	h.opts = RunnerOpts{
		Config:   config,
		API:      services.NewAPIService(services.APIOptions{BaseURL: fake.URL(), HTTPClient: fake.Client()}),
		Sessions: h.sessions,
		Cache:    h.cache,
		SignIn:   func(context.Context) (string, error) { return tu.ValidIDToken, nil },
		Logger:   shared.NewLogger(io.Discard),
		Output:   h.out,
		Input:    strings.NewReader(input),
	}
	h.runner = NewRunner(h.opts)
	return h
}

func (h *cliHarness) run(args ...string) error {
	return h.runner.app().Run(context.Background(), append([]string{"botanica"}, args...))
}

// restart builds a fresh runner over the same store and backend, as a new process would.
func (h *cliHarness) restart(input string) {
	h.out.Reset()
	h.opts.API = services.NewAPIService(services.APIOptions{BaseURL: h.fake.URL(), HTTPClient: h.fake.Client()})
	h.opts.Input = strings.NewReader(input)
	h.runner = NewRunner(h.opts)
}

func loggedInCLI(t *testing.T, input string, opts ...tu.FakeOption) *cliHarness {
	t.Helper()
	h := newCLI(t, input, opts...)
	require.NoError(t, h.run("auth", "login"))
	h.out.Reset()
	return h
}

func TestAuthCommands(t *testing.T) {
	t.Run("Login Persists Session", func(t *testing.T) {
		h := newCLI(t, "")

		require.NoError(t, h.run("auth", "login"))

		assert.Contains(t, h.out.String(), "✓ Signed in as Ana")
		assert.Contains(t, h.out.String(), "Jobs: 0")
		assert.Equal(t, 1, h.fake.Count("GET /load-data"))
		assert.Equal(t, 1, h.fake.Count("GET /subcategories"))

		saved, err := h.sessions.Get()
		require.NoError(t, err)
		assert.Equal(t, "Ana", saved.DisplayName)
		assert.Equal(t, tu.ValidIDToken, saved.Credential)
	})

	t.Run("Login With ID Token Flag", func(t *testing.T) {
		h := newCLI(t, "")
		h.runner.signIn = func(context.Context) (string, error) {
			t.Fatal("browser flow must not run when --id-token is given")
			return "", nil
		}

		require.NoError(t, h.run("auth", "login", "--id-token", tu.ValidIDToken))
		assert.True(t, h.runner.ctrl.LoggedIn())
	})

	t.Run("Rejected Token", func(t *testing.T) {
		h := newCLI(t, "")

		err := h.run("auth", "login", "--id-token", "forged")

		require.Error(t, err)
		assert.Equal(t, "Login failed: Invalid Google token", err.Error())
		assert.False(t, h.runner.ctrl.LoggedIn())
		_, err = h.sessions.Get()
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Login Without Identity Provider", func(t *testing.T) {
		h := newCLI(t, "")
		h.runner.signIn = nil

		err := h.run("auth", "login", "--no-browser")

		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
		assert.Equal(t, 0, h.fake.Total())
	})

	t.Run("Session Survives Restart", func(t *testing.T) {
		h := loggedInCLI(t, "", tu.WithUser("Ana", "https://example.com/ana.png"))
		h.restart("")

		require.NoError(t, h.run("auth", "status"))

		assert.Contains(t, h.out.String(), "✓ Signed in as Ana")
		assert.Contains(t, h.out.String(), "Avatar: https://example.com/ana.png")
	})

	t.Run("Status Omits Missing Avatar", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("auth", "status"))

		assert.NotContains(t, h.out.String(), "Avatar:")
	})

	t.Run("Status Verify", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("auth", "status", "--verify"))
		assert.Contains(t, h.out.String(), "Session: ✓ Accepted")

		h.fake.SetUnauthorized(true)
		err := h.run("auth", "status", "--verify")
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		assert.False(t, h.runner.ctrl.LoggedIn())
	})

	t.Run("Status Signed Out", func(t *testing.T) {
		h := newCLI(t, "")

		require.NoError(t, h.run("auth", "status"))

		assert.Contains(t, h.out.String(), "✗ Not signed in")
		assert.Equal(t, 0, h.fake.Total())
	})

	t.Run("Logout Clears Saved Session", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("auth", "logout"))

		assert.Contains(t, h.out.String(), "Logged out")
		assert.Equal(t, 1, h.fake.Count("POST /logout"))
		_, err := h.sessions.Get()
		assert.ErrorIs(t, err, shared.ErrNotFound)

		h.restart("")
		assert.False(t, h.runner.ctrl.LoggedIn())
	})
}

func TestSessionBoundaryCommands(t *testing.T) {
	t.Run("Commands Require A Session", func(t *testing.T) {
		for _, args := range [][]string{
			{"jobs", "list"},
			{"jobs", "show", "42"},
			{"jobs", "create", "--name", "x"},
			{"data", "show"},
			{"api", "get", "/subcategories"},
		} {
			t.Run(strings.Join(args, " "), func(t *testing.T) {
				h := newCLI(t, "")

				err := h.run(args...)

				assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
				assert.Equal(t, 0, h.fake.Total(), "no request may be sent without a session")
			})
		}
	})

	t.Run("Expired Session Is Forgotten", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje"})
		require.NoError(t, h.run("jobs", "list"))
		h.fake.SetUnauthorized(true)

		err := h.run("jobs", "list")

		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		_, err = h.sessions.Get()
		assert.ErrorIs(t, err, shared.ErrNotFound)

		h.out.Reset()
		require.NoError(t, h.run("jobs", "list", "--cached", "--json"))
		assert.JSONEq(t, "[]", h.out.String())
	})
}

func TestJobsCommands(t *testing.T) {
	t.Run("Create Then Show", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("jobs", "create", "--name", "Čišćenje", "--short", "weekly"))
		assert.Contains(t, h.out.String(), "✓ Job created: Čišćenje (42)")
		assert.Contains(t, h.out.String(), "Summary: weekly")

		h.out.Reset()
		require.NoError(t, h.run("jobs", "show", "42"))
		assert.Contains(t, h.out.String(), "ID: 42")
		assert.Contains(t, h.out.String(), "Name: Čišćenje")
		assert.Contains(t, h.out.String(), "Active: true")
	})

	t.Run("List JSON", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "a", IsActive: true}, models.Subcategory{Name: "b"})

		require.NoError(t, h.run("jobs", "list", "--json"))

		var jobs []models.Subcategory
		require.NoError(t, json.Unmarshal(h.out.Bytes(), &jobs))
		require.Len(t, jobs, 2)
		assert.Equal(t, models.ID("42"), jobs[0].ID)
		assert.Equal(t, "b", jobs[1].Name)
	})

	t.Run("Empty List JSON", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("jobs", "list", "--json"))

		assert.Equal(t, "[]\n", h.out.String())
	})

	t.Run("Cached List Needs No Backend", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje", IsActive: true})
		require.NoError(t, h.run("jobs", "list"))

		h.fake.SetUnauthorized(true)
		before := h.fake.Total()
		h.out.Reset()

		require.NoError(t, h.run("jobs", "list", "--cached"))

		assert.Contains(t, h.out.String(), "Cached:")
		assert.Contains(t, h.out.String(), "Zalivanje")
		assert.Equal(t, before, h.fake.Total())
	})

	t.Run("Update Changes Only Given Fields", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje", ShortDescription: "daily", IsActive: true})

		require.NoError(t, h.run("jobs", "update", "--active=false", "42"))

		subs := h.fake.Subcategories()
		require.Len(t, subs, 1)
		assert.Equal(t, "Zalivanje", subs[0].Name)
		assert.Equal(t, "daily", subs[0].ShortDescription)
		assert.False(t, subs[0].IsActive)
		assert.Contains(t, h.out.String(), "✓ Job updated: Zalivanje (42)")
	})

	t.Run("Update Without Flags", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "a"})

		err := h.run("jobs", "update", "42")

		assert.ErrorIs(t, err, shared.ErrMissingArgument)
		assert.Equal(t, 0, h.fake.Count("PUT /subcategories/{id}"))
	})

	t.Run("Show Missing Job", func(t *testing.T) {
		h := loggedInCLI(t, "")

		err := h.run("jobs", "show", "99")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "Job not found.", err.Error())
	})

	t.Run("Delete After Prompt", func(t *testing.T) {
		h := loggedInCLI(t, "y\n")
		h.fake.Seed(models.Subcategory{Name: "a"})

		require.NoError(t, h.run("jobs", "delete", "42"))

		assert.Contains(t, h.out.String(), "Delete job 42? [y/N]")
		assert.Empty(t, h.fake.Subcategories())
	})

	t.Run("Declined Delete", func(t *testing.T) {
		h := loggedInCLI(t, "n\n")
		h.fake.Seed(models.Subcategory{Name: "a"})

		err := h.run("jobs", "delete", "42")

		assert.ErrorIs(t, err, shared.ErrCancelled)
		assert.Len(t, h.fake.Subcategories(), 1)
		assert.Equal(t, 0, h.fake.Count("DELETE /subcategories/{id}"))
	})

	t.Run("Delete With Yes Skips Prompt", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "a"})

		require.NoError(t, h.run("jobs", "delete", "--yes", "42"))

		assert.NotContains(t, h.out.String(), "[y/N]")
		assert.Empty(t, h.fake.Subcategories())
	})

	t.Run("Delete Placeholder Rejected Locally", func(t *testing.T) {
		h := loggedInCLI(t, "")
		before := h.fake.Total()

		err := h.run("jobs", "delete", "--yes", string(models.PlaceholderID))

		assert.ErrorIs(t, err, shared.ErrNoSelection)
		assert.Equal(t, before, h.fake.Total())
	})

	t.Run("Export To Stdout", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje", ShortDescription: "daily", IsActive: true})

		require.NoError(t, h.run("jobs", "export", "--format", "md", "--output=-"))

		assert.Contains(t, h.out.String(), "## Zalivanje")
	})

	t.Run("Export To File", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje", IsActive: true})
		path := filepath.Join(t.TempDir(), "jobs.csv")

		require.NoError(t, h.run("jobs", "export", "--format", "csv", "-o", path))

		tu.AssertFileExists(t, path)
		assert.Contains(t, tu.MustReadFile(t, path), "42,Zalivanje")
		assert.Contains(t, h.out.String(), "✓ Exported 1 jobs to "+path)
	})

	t.Run("Export Unknown Format", func(t *testing.T) {
		h := loggedInCLI(t, "")
		before := h.fake.Total()

		err := h.run("jobs", "export", "--format", "xml", "--output=-")

		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		assert.Equal(t, before, h.fake.Total())
	})

	t.Run("Backup Writes Files And Manifest", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "Zalivanje", IsActive: true}, models.Subcategory{Name: "Orezivanje"})
		dir := filepath.Join(t.TempDir(), "backup")

		require.NoError(t, h.run("jobs", "backup", "--format", "txt", "--dir", dir, "--workers", "2"))

		tu.AssertFileExists(t, filepath.Join(dir, "job_42.txt"))
		tu.AssertFileExists(t, filepath.Join(dir, "job_43.txt"))
		assert.Contains(t, h.out.String(), "✓ Backed up 2 of 2 jobs to "+dir)
		assert.Equal(t, 2, h.fake.Count("GET /subcategories/{id}"))

		var manifest map[string]any
		require.NoError(t, json.Unmarshal([]byte(tu.MustReadFile(t, filepath.Join(dir, "backup_manifest.json"))), &manifest))
		assert.EqualValues(t, 2, manifest["succeeded"])
	})

	t.Run("Backup Requires A Session", func(t *testing.T) {
		h := newCLI(t, "")

		err := h.run("jobs", "backup", "--dir", t.TempDir())

		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
		assert.Equal(t, 0, h.fake.Total())
	})
}

func TestDataCommands(t *testing.T) {
	t.Run("Save Keeps Other Fields", func(t *testing.T) {
		h := loggedInCLI(t, "")
		seed := models.NewMainData()
		seed["largeText"] = "keep me"
		h.fake.SetMainData(seed)

		require.NoError(t, h.run("data", "save", "--set", "input1=Botanica, d.o.o.", "--set", "dropdown=opcija2"))

		saved := h.fake.MainData()
		assert.Equal(t, "Botanica, d.o.o.", saved.Get("input1"))
		assert.Equal(t, "opcija2", saved.Get("dropdown"))
		assert.Equal(t, "keep me", saved.Get("largeText"))
		assert.Contains(t, h.out.String(), "✓ Data saved")
	})

	t.Run("Save From File", func(t *testing.T) {
		h := loggedInCLI(t, "")
		path := filepath.Join(t.TempDir(), "data.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"input3": "info@example.com", "input4": null}`), 0644))

		require.NoError(t, h.run("data", "save", "--file", path, "--set", "input4=example.com"))

		assert.Equal(t, "info@example.com", h.fake.MainData().Get("input3"))
		assert.Equal(t, "example.com", h.fake.MainData().Get("input4"))
	})

	t.Run("Unknown Field Rejected Before Requests", func(t *testing.T) {
		h := loggedInCLI(t, "")
		before := h.fake.Total()

		err := h.run("data", "save", "--set", "color=green")

		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		assert.Equal(t, before, h.fake.Total())
	})

	t.Run("Invalid Dropdown Option", func(t *testing.T) {
		h := loggedInCLI(t, "")

		err := h.run("data", "save", "--set", "dropdown=bogus")

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, 0, h.fake.Count("POST /save-data"))
	})

	t.Run("Nothing To Save", func(t *testing.T) {
		h := loggedInCLI(t, "")

		assert.ErrorIs(t, h.run("data", "save"), shared.ErrMissingArgument)
	})

	t.Run("Malformed Set", func(t *testing.T) {
		h := loggedInCLI(t, "")

		assert.ErrorIs(t, h.run("data", "save", "--set", "input1"), shared.ErrInvalidArgument)
	})

	t.Run("Show Text And JSON", func(t *testing.T) {
		h := loggedInCLI(t, "")
		seed := models.NewMainData()
		seed["input1"] = "Botanica"
		h.fake.SetMainData(seed)

		require.NoError(t, h.run("data", "show"))
		assert.Contains(t, h.out.String(), "Company name (input1): Botanica")

		h.out.Reset()
		require.NoError(t, h.run("data", "show", "--json"))
		var data map[string]string
		require.NoError(t, json.Unmarshal(h.out.Bytes(), &data))
		assert.Equal(t, "Botanica", data["input1"])
		assert.Contains(t, data, "largeText3")
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		h := loggedInCLI(t, "")
		h.fake.Seed(models.Subcategory{Name: "a"})

		require.NoError(t, h.run("api", "get", "subcategories"))

		assert.Contains(t, h.out.String(), `"subcategories"`)
		assert.Equal(t, "Bearer "+tu.ValidIDToken, h.fake.LastAuthorization())
	})

	t.Run("Post", func(t *testing.T) {
		h := loggedInCLI(t, "")

		require.NoError(t, h.run("api", "post", "-d", `{"name":"raw"}`, "/subcategories"))

		require.Len(t, h.fake.Subcategories(), 1)
		assert.Equal(t, "raw", h.fake.Subcategories()[0].Name)
	})

	t.Run("Post Invalid JSON", func(t *testing.T) {
		h := loggedInCLI(t, "")
		before := h.fake.Total()

		err := h.run("api", "post", "-d", "{nope", "/subcategories")

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, before, h.fake.Total())
	})

	t.Run("Error Status", func(t *testing.T) {
		h := loggedInCLI(t, "")

		err := h.run("api", "get", "/subcategories/99")

		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Contains(t, err.Error(), "status 404")
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		h := newCLI(t, "")
		path := filepath.Join(t.TempDir(), "config.toml")

		require.NoError(t, h.run("setup", "config", "--config", path))

		tu.AssertFileExists(t, path)
		assert.Contains(t, h.out.String(), "✓ Config written to "+path)
		assert.ErrorIs(t, h.run("setup", "config", "--config", path), shared.ErrInvalidArgument)
	})

	t.Run("Database", func(t *testing.T) {
		h := newCLI(t, "")
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "data", "botanica.db")
		t.Setenv(shared.EnvDatabasePath, dbPath)

		require.NoError(t, h.run("setup", "database", "--config", filepath.Join(dir, "config.toml")))

		tu.AssertFileExists(t, dbPath)
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		assert.Contains(t, h.out.String(), "✓ Database ready at "+dbPath)
	})
}
