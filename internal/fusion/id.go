package fusion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/ppiankov/trustmap/internal/model"
)

// IDOperatorID marks an entry added only to record a judgment id
const IDOperatorID = "judgment-id"

// idPayload is the canonical content addressed by a judgment id.
// encoding/json sorts map keys, so provenance entries encode deterministically.
type idPayload struct {
	T               float64                 `json:"T"`
	I               float64                 `json:"I"`
	F               float64                 `json:"F"`
	ProvenanceChain []model.ProvenanceEntry `json:"provenance_chain"`
}

// JudgmentID returns a CIDv1 (raw codec, sha2-256) over the canonical JSON of
// a triple and its provenance chain. Equal content always yields the same id.
func JudgmentID(tr model.Triple, chain model.ProvenanceChain) (string, error) {
	if chain == nil {
		chain = model.ProvenanceChain{}
	}
	data, err := json.Marshal(idPayload{T: tr.T, I: tr.I, F: tr.F, ProvenanceChain: chain})
	if err != nil {
		return "", fmt.Errorf("encode judgment for id: %w", err)
	}
	c, err := cidV1RawSHA256(data)
	if err != nil {
		return "", fmt.Errorf("derive judgment id: %w", err)
	}
	return c.String(), nil
}

// ParseJudgmentID checks that s is a CIDv1 with the raw codec and a sha2-256 multihash
func ParseJudgmentID(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, model.WrapFormat(err, "judgment id %q is not a CID", s)
	}
	if c.Version() != 1 || c.Type() != cid.Raw {
		return cid.Undef, model.FormatError("judgment id %q must be a raw CIDv1", s)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return cid.Undef, model.WrapFormat(err, "judgment id %q has a malformed multihash", s)
	}
	if decoded.Code != multihash.SHA2_256 {
		return cid.Undef, model.FormatError("judgment id %q is not sha2-256", s)
	}
	return c, nil
}

// EnsureID returns j unchanged when its chain already records a judgment id.
// Otherwise it returns a new judgment extended with an entry carrying one.
func EnsureID(j model.Judgment, at time.Time) (model.Judgment, error) {
	if err := j.Triple().Validate(); err != nil {
		return model.Judgment{}, err
	}
	if j.ID() != "" {
		return j, nil
	}
	id, err := JudgmentID(j.Triple(), j.Provenance())
	if err != nil {
		return model.Judgment{}, err
	}
	return j.Extend(model.NewOperatorEntry(IDOperatorID, at, map[string]any{model.KeyJudgmentID: id}))
}

func cidV1RawSHA256(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
