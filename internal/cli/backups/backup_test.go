package backups

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

func setup(t *testing.T) (*cli.Context, *sqlite.Store, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "studyplan.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Owner: "alice", Out: out}, store, out
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, _, out := setup(t)

	if err := (&BackupCreateCmd{Label: "before_exam"}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "before_exam") {
		t.Errorf("file name should carry the label:\n%s", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "1 total") {
		t.Errorf("expected one backup listed:\n%s", out.String())
	}
}

func TestBackupCreate_RejectsBadLabel(t *testing.T) {
	ctx, _, _ := setup(t)
	if err := (&BackupCreateCmd{Label: "Not OK"}).Run(ctx); err == nil {
		t.Fatal("expected error for invalid label")
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, store, out := setup(t)
	bg := context.Background()

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created:"))

	settings := models.DefaultSettings()
	settings.WakeTime = "05:00"
	if err := store.SaveSettings(bg, "alice", settings); err != nil {
		t.Fatal(err)
	}

	if err := (&BackupRestoreCmd{BackupFile: name, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	restored := sqlite.NewStore(store.GetConfigPath())
	if err := restored.Load(bg); err != nil {
		t.Fatalf("failed to load restored db: %v", err)
	}
	defer restored.Close()
	if _, err := restored.GetSettings(bg, "alice"); err == nil {
		t.Error("settings saved after the backup survived the restore")
	}
}

func TestBackupRestore_Declined(t *testing.T) {
	ctx, _, out := setup(t)
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created:"))

	asked := false
	ctx.Prompt = func(string, string) (bool, error) {
		asked = true
		return false, nil
	}
	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: name}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !asked || !strings.Contains(out.String(), "cancelled") {
		t.Errorf("asked=%v output=%q", asked, out.String())
	}
}
