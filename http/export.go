package http

import (
	"crypto/ecdsa"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/snapshot"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/segmentio/encoding/json"
)

// SessionExport is the response of the session export endpoint.
type SessionExport struct {
	SessionID  string          `json:"session_id"`
	VoxelCount int             `json:"voxel_count"`
	Snapshot   snapshot.Signed `json:"snapshot"`
}

// HandleSessionExport returns a handler that exports all the voxels of the
// session designated by the session_id query parameter as a signed snapshot.
// Voxel positions are kept in world coordinates.
func HandleSessionExport(sessions *models.SessionStore, key *ecdsa.PrivateKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
			return
		}

		session, ok := sessions.GetByGlobalID(sessionID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		voxels := session.Voxels().Voxels()
		signed, err := snapshot.SignExport(snapshot.NewExport(voxel.Cell{}, voxels), key)
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("exporting session failed").
				WithTag("session_id", sessionID).
				Wrap(err))
			return
		}

		b, err := json.Marshal(SessionExport{
			SessionID:  sessionID,
			VoxelCount: len(voxels),
			Snapshot:   signed,
		})
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("encoding session export failed").Wrap(err))
			return
		}

		logs.WithTag("session_id", sessionID).
			WithTag("voxel_count", len(voxels)).
			Info("session exported")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}
