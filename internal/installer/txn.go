package installer

import (
	"os"

	"github.com/spf13/afero"

	"aster/internal/fsutil"
)

// txn tracks every file touched by one install so a fatal failure can put
// the working tree back the way it was.
type txn struct {
	fs      afero.Fs
	created []string
	backups map[string][]byte
	touched map[string]struct{}
}

func newTxn(fs afero.Fs) *txn {
	return &txn{fs: fs, backups: map[string][]byte{}, touched: map[string]struct{}{}}
}

func (t *txn) write(path string, data []byte) error {
	if _, ok := t.touched[path]; !ok {
		old, err := afero.ReadFile(t.fs, path)
		switch {
		case err == nil:
			t.backups[path] = old
		case os.IsNotExist(err):
			t.created = append(t.created, path)
		default:
			return err
		}
		t.touched[path] = struct{}{}
	}
	return fsutil.AtomicWrite(t.fs, path, data, 0o644)
}

func (t *txn) rollback() {
	for i := len(t.created) - 1; i >= 0; i-- {
		_ = t.fs.Remove(t.created[i])
	}
	for path, old := range t.backups {
		_ = afero.WriteFile(t.fs, path, old, 0o644)
	}
}
