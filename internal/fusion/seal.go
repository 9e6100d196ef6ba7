package fusion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ppiankov/trustmap/internal/model"
)

// sealPayload is the canonical form hashed into a conformance seal.
// Field order is fixed by the struct; inputs keep their fusion order.
type sealPayload struct {
	OperatorID string      `json:"operator_id"`
	Inputs     []sealInput `json:"inputs"`
}

type sealInput struct {
	T      float64 `json:"T"`
	I      float64 `json:"I"`
	F      float64 `json:"F"`
	Weight float64 `json:"weight"`
}

// Seal computes the conformance seal of a fusion: the hex SHA-256 of the
// operator id and every input's components and normalized weight.
// nil weights mean equal weights.
func Seal(judgments []model.Judgment, weights []float64, operatorID string) (string, error) {
	if len(judgments) == 0 {
		return "", model.ArgumentError("cannot seal an empty list of judgments")
	}
	if operatorID == "" {
		return "", model.ArgumentError("seal needs an operator id")
	}
	w, err := resolveWeights(weights, len(judgments))
	if err != nil {
		return "", err
	}

	payload := sealPayload{OperatorID: operatorID, Inputs: make([]sealInput, len(judgments))}
	for i, j := range judgments {
		payload.Inputs[i] = sealInput{T: j.T(), I: j.I(), F: j.F(), Weight: roundWeight(w[i])}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode seal payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifySeal recomputes the seal of fused from its inputs and compares it
// with the seal recorded in fused's last provenance entry. A missing seal is
// a validation error; a mismatch returns false.
func VerifySeal(fused model.Judgment, judgments []model.Judgment, weights []float64) (bool, error) {
	last := fused.Provenance().Last()
	if last == nil {
		return false, model.ValidationError("judgment has no provenance")
	}
	recorded := last.String(model.KeyConformanceSeal)
	if recorded == "" {
		return false, model.ValidationError("last provenance entry carries no %s", model.KeyConformanceSeal)
	}
	operatorID := last.OperatorID()
	if operatorID == "" {
		return false, model.ValidationError("last provenance entry is not an operator entry")
	}

	// The extreme operators ignore weights
	if operatorID == OptimisticOperatorID || operatorID == PessimisticOperatorID {
		weights = nil
	}

	expected, err := Seal(judgments, weights, operatorID)
	if err != nil {
		return false, err
	}
	return expected == recorded, nil
}

func resolveWeights(weights []float64, n int) ([]float64, error) {
	if weights == nil {
		return uniformWeights(n), nil
	}
	if len(weights) != n {
		return nil, model.ArgumentError("got %d judgments but %d weights", n, len(weights))
	}
	return normalizeWeights(weights)
}

// roundWeight drops the last few bits so raw and pre-normalized weights seal alike
func roundWeight(w float64) float64 {
	return math.Round(w*1e12) / 1e12
}
