package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ljcooper54/DeID/internal/auth"
	"github.com/ljcooper54/DeID/internal/detect"
	"github.com/ljcooper54/DeID/internal/dictionary"
	"github.com/ljcooper54/DeID/internal/docs"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/restorecache"
	"github.com/ljcooper54/DeID/internal/shared"
)

type testEnv struct {
	engine *Engine
	store  *dictionary.Store
	cache  restorecache.Cache
	audit  *repositories.AuditRepository
	sess   *auth.Session
}

func setupEngine(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	users := repositories.NewUserRepository(db)
	user := models.NewUser(0, "alice", "hash")
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	projects := repositories.NewProjectRepository(db)
	project := models.NewProject(0, user.ID(), "alpha", "")
	if err := projects.Create(project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	cache := restorecache.NewMemory()
	store := dictionary.NewStore(repositories.NewEntryRepository(db), repositories.NewKeywordRepository(db), cache, logger)
	detector := detect.NewDetector(false, logger, detect.NewRuleClassifier())
	audit := repositories.NewAuditRepository(db)

	return &testEnv{
		engine: New(detector, store, cache, docs.NewRegistry(), audit, logger),
		store:  store,
		cache:  cache,
		audit:  audit,
		sess:   &auth.Session{UserID: user.ID(), Username: "alice", ProjectID: project.ID()},
	}
}

func (env *testEnv) addRule(t *testing.T, pattern string, et models.EntityType) {
	t.Helper()
	if _, err := env.store.AddKeywordRule(context.Background(), env.sess, pattern, et, false, false); err != nil {
		t.Fatalf("failed to add rule: %v", err)
	}
}

func TestDeidentify(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplacesSpansWithTokens", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "John Smith", models.EntityPerson)
		env.addRule(t, "Acme", models.EntityOrg)

		doc := models.NewDocument("plain", "memo.txt", "John Smith signed with Acme. John Smith was pleased.")
		result, err := env.engine.Deidentify(ctx, env.sess, doc)
		if err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		want := "PERSON-0001 signed with ORG-0001. PERSON-0001 was pleased."
		if result.Output != want {
			t.Errorf("expected %q, got %q", want, result.Output)
		}
		if doc.Text != result.Output {
			t.Error("document text not updated")
		}
		if doc.State() != models.StateAnonymized {
			t.Errorf("expected anonymized state, got %s", doc.State())
		}
		if len(result.Rewrites) != 3 {
			t.Errorf("expected 3 rewrites, got %v", result.Rewrites)
		}
		for i := 1; i < len(result.Rewrites); i++ {
			if result.Rewrites[i].Start < result.Rewrites[i-1].End {
				t.Error("rewrite log not in document order")
			}
		}
	})

	t.Run("TokensStableAcrossDocuments", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "John Smith", models.EntityPerson)

		first := models.NewDocument("plain", "a.txt", "ask John Smith")
		if _, err := env.engine.Deidentify(ctx, env.sess, first); err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}
		second := models.NewDocument("plain", "b.txt", "JOHN SMITH replied")
		result, err := env.engine.Deidentify(ctx, env.sess, second)
		if err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}
		if !strings.Contains(result.Output, "PERSON-0001") {
			t.Errorf("token not reused across documents: %q", result.Output)
		}
	})

	t.Run("RecordsAudit", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "Acme", models.EntityOrg)

		doc := models.NewDocument("plain", "a.txt", "Acme shipped")
		if _, err := env.engine.Deidentify(ctx, env.sess, doc); err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		records, err := env.audit.ListByProject(env.sess.ProjectID)
		if err != nil {
			t.Fatalf("audit list failed: %v", err)
		}
		if len(records) != 1 || records[0].Kind != "obscure" {
			t.Fatalf("expected one obscure audit row, got %v", records)
		}
		if records[0].InputHash == records[0].OutputHash {
			t.Error("input and output hashes should differ")
		}
	})

	t.Run("IndexesSourceLiterals", func(t *testing.T) {
		env := setupEngine(t)

		// The source text already contains a token-shaped literal; the
		// dictionary must never mint it for this project afterwards.
		doc := models.NewDocument("plain", "a.txt", "ref PERSON-0001 in prior export")
		if _, err := env.engine.Deidentify(ctx, env.sess, doc); err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		token, _, err := env.store.LookupOrCreate(ctx, env.sess, "John Smith", models.EntityPerson)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if token == "PERSON-0001" {
			t.Error("minted a token that collides with seen text")
		}
	})

	t.Run("RejectsWrongState", func(t *testing.T) {
		env := setupEngine(t)

		doc := models.NewResponseDocument("plain", "a.txt", "text")
		if _, err := env.engine.Deidentify(ctx, env.sess, doc); err == nil {
			t.Fatal("expected state transition error")
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "John Smith", models.EntityPerson)
		env.addRule(t, "Acme", models.EntityOrg)

		original := "John Smith signed with Acme."
		doc := models.NewDocument("plain", "memo.txt", original)
		obscured, err := env.engine.Deidentify(ctx, env.sess, doc)
		if err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		back := models.NewResponseDocument("plain", "memo.txt", obscured.Output)
		restored, err := env.engine.Restore(ctx, env.sess, back)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if restored.Output != original {
			t.Errorf("round trip mismatch: %q", restored.Output)
		}
		if back.State() != models.StateRestored {
			t.Errorf("expected restored state, got %s", back.State())
		}
	})

	t.Run("FuzzyDamagedTokens", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "John Smith", models.EntityPerson)

		doc := models.NewDocument("plain", "a.txt", "ask John Smith")
		if _, err := env.engine.Deidentify(ctx, env.sess, doc); err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		back := models.NewResponseDocument("plain", "a.txt", "reply to person-0001 and Person_0001 please")
		restored, err := env.engine.Restore(ctx, env.sess, back)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if restored.Output != "reply to John Smith and John Smith please" {
			t.Errorf("fuzzy restore failed: %q", restored.Output)
		}
	})

	t.Run("NaturalPhraseNeverSubstituted", func(t *testing.T) {
		env := setupEngine(t)

		if _, _, err := env.store.LookupOrCreate(ctx, env.sess, "Project Falcon", models.EntityCodeName); err != nil {
			t.Fatalf("lookup failed: %v", err)
		}

		back := models.NewResponseDocument("plain", "a.txt", "the error code 0001 appeared twice")
		restored, err := env.engine.Restore(ctx, env.sess, back)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if restored.Output != "the error code 0001 appeared twice" {
			t.Errorf("prose altered by token scan: %q", restored.Output)
		}
		if len(restored.Findings) != 0 {
			t.Errorf("expected no findings, got %v", restored.Findings)
		}
	})

	t.Run("UnknownTokenLeftIntact", func(t *testing.T) {
		env := setupEngine(t)

		back := models.NewResponseDocument("plain", "a.txt", "status of PERSON-4242 unknown")
		restored, err := env.engine.Restore(ctx, env.sess, back)
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if restored.Output != "status of PERSON-4242 unknown" {
			t.Errorf("unknown token altered: %q", restored.Output)
		}
		if len(restored.Findings) != 1 || restored.Findings[0].Kind != models.FindingUnknownToken {
			t.Fatalf("expected UnknownToken finding, got %v", restored.Findings)
		}
	})

	t.Run("RecordsUsage", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "Acme", models.EntityOrg)

		doc := models.NewDocument("plain", "a.txt", "Acme shipped")
		obscured, err := env.engine.Deidentify(ctx, env.sess, doc)
		if err != nil {
			t.Fatalf("deidentify failed: %v", err)
		}

		back := models.NewResponseDocument("plain", "a.txt", obscured.Output)
		if _, err := env.engine.Restore(ctx, env.sess, back); err != nil {
			t.Fatalf("restore failed: %v", err)
		}

		usage, ok, err := env.cache.TokenUsage(env.sess.UserID, env.sess.ProjectID, "ORG-0001")
		if err != nil || !ok {
			t.Fatalf("expected usage recorded, ok=%v err=%v", ok, err)
		}
		if usage.Count != 1 {
			t.Errorf("expected count 1, got %d", usage.Count)
		}
	})
}

func TestFileOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("ObscureAndRestoreCSV", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "John Smith", models.EntityPerson)
		env.addRule(t, "Acme", models.EntityOrg)

		dir := t.TempDir()
		src := filepath.Join(dir, "contacts.csv")
		input := "name,company\nJohn Smith,Acme\n"
		if err := os.WriteFile(src, []byte(input), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		obscured, err := env.engine.ObscureFile(ctx, env.sess, src, "")
		if err != nil {
			t.Fatalf("obscure file failed: %v", err)
		}
		if filepath.Base(obscured.OutputPath) != "Obscured_contacts.csv" {
			t.Errorf("unexpected output name %s", obscured.OutputPath)
		}

		data, err := os.ReadFile(obscured.OutputPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		want := "name,company\nPERSON-0001,ORG-0001\n"
		if string(data) != want {
			t.Errorf("expected %q, got %q", want, data)
		}

		restored, err := env.engine.RestoreFile(ctx, env.sess, obscured.OutputPath, "")
		if err != nil {
			t.Fatalf("restore file failed: %v", err)
		}
		if filepath.Base(restored.OutputPath) != "Restored_contacts.csv" {
			t.Errorf("unexpected restored name %s", restored.OutputPath)
		}
		data, err = os.ReadFile(restored.OutputPath)
		if err != nil {
			t.Fatalf("failed to read restored output: %v", err)
		}
		if string(data) != input {
			t.Errorf("round trip mismatch: %q", data)
		}
	})

	t.Run("PhraseAcrossCellsStaysUnmatched", func(t *testing.T) {
		env := setupEngine(t)

		// "see Project" and "Falcon team" sit in adjacent cells; read as one
		// string they would look like a codename phrase. The adapter keeps
		// the cells apart, so the run succeeds and the layout survives.
		dir := t.TempDir()
		src := filepath.Join(dir, "notes.csv")
		input := "note,owner\nsee Project,Falcon team\nok,bob\n"
		if err := os.WriteFile(src, []byte(input), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		obscured, err := env.engine.ObscureFile(ctx, env.sess, src, "")
		if err != nil {
			t.Fatalf("obscure file failed: %v", err)
		}
		data, err := os.ReadFile(obscured.OutputPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if string(data) != input {
			t.Errorf("expected untouched layout, got %q", data)
		}
	})

	t.Run("BinaryFileRejected", func(t *testing.T) {
		env := setupEngine(t)

		dir := t.TempDir()
		src := filepath.Join(dir, "blob.bin")
		if err := os.WriteFile(src, []byte{0x50, 0x4b, 0x00, 0x01}, 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		if _, err := env.engine.ObscureFile(ctx, env.sess, src, ""); err == nil {
			t.Fatal("expected binary file to be rejected")
		}
	})
}

func TestBatchDeidentify(t *testing.T) {
	ctx := context.Background()

	t.Run("ProcessesAllFiles", func(t *testing.T) {
		env := setupEngine(t)
		env.addRule(t, "Acme", models.EntityOrg)

		dir := t.TempDir()
		var paths []string
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			p := filepath.Join(dir, name)
			if err := os.WriteFile(p, []byte("Acme report "+name), 0644); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}
			paths = append(paths, p)
		}

		prog := make(chan ProgressUpdate, 64)
		result, err := env.engine.BatchDeidentify(ctx, prog, env.sess, paths, BatchOpts{NumWorkers: 2})
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}
		if result.Succeeded != 3 || result.Failed != 0 {
			t.Fatalf("expected 3 successes, got %+v", result)
		}
		if len(prog) == 0 {
			t.Error("expected progress updates")
		}

		// Same value across files, same token.
		for _, p := range paths {
			data, err := os.ReadFile(filepath.Join(dir, docs.ObscuredName(p)))
			if err != nil {
				t.Fatalf("missing output for %s: %v", p, err)
			}
			if !strings.Contains(string(data), "ORG-0001") {
				t.Errorf("token not shared across batch: %q", data)
			}
		}
	})

	t.Run("PartialFailure", func(t *testing.T) {
		env := setupEngine(t)

		dir := t.TempDir()
		good := filepath.Join(dir, "good.txt")
		if err := os.WriteFile(good, []byte("plain text"), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
		missing := filepath.Join(dir, "missing.txt")

		result, err := env.engine.BatchDeidentify(ctx, nil, env.sess, []string{good, missing}, BatchOpts{})
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 1 {
			t.Fatalf("expected one success and one failure, got %+v", result)
		}
	})

	t.Run("Cancellation", func(t *testing.T) {
		env := setupEngine(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		dir := t.TempDir()
		p := filepath.Join(dir, "a.txt")
		if err := os.WriteFile(p, []byte("text"), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		if _, err := env.engine.BatchDeidentify(cancelled, nil, env.sess, []string{p}, BatchOpts{}); err == nil {
			t.Fatal("expected cancellation error")
		}
	})
}
