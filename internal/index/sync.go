package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/starford/kinship/internal/models"
)

// Snapshot is the read side of the family tree the mirror is built from.
type Snapshot interface {
	People() []models.Person
}

// Sync brings the mirror up to date with the tree. The mirror records a
// digest of the people it was built from and is rebuilt only when the tree's
// digest differs, so a restart on an unchanged tree does no work.
//
// The digest covers the in-memory state rather than the family file: a person
// without edges is not written to the file but must still be mirrored.
func Sync(db PeopleIndex, tree Snapshot, logger *slog.Logger) error {
	people := tree.People()
	want := StateDigest(people)
	have, err := db.Checksum()
	if err != nil {
		return err
	}
	if have == want {
		logger.Debug("sync: index up to date", slog.String("digest", want))
		return nil
	}

	if err := db.Replace(people, want); err != nil {
		return err
	}
	logger.Debug("sync: index rebuilt",
		slog.Int("people", len(people)),
		slog.String("digest", want))
	return nil
}

// StateDigest fingerprints people in order, including persons with no edges.
// Fields are NUL-terminated so that no two distinct states hash alike.
func StateDigest(people []models.Person) string {
	h := sha256.New()
	for _, p := range people {
		h.Write([]byte(p.Name))
		h.Write([]byte{0})
		for _, rel := range p.Relationships {
			h.Write([]byte(rel.Type))
			h.Write([]byte{0})
			h.Write([]byte(rel.Target))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
