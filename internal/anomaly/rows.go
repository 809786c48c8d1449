package anomaly

import (
	"fmt"

	apperrors "txanomaly/internal/errors"
)

// ScoreRows fits the isolation forest and the local outlier factor on the
// full feature matrix and returns both normalized scores per row, keyed
// by the row of each feature vector.
func ScoreRows(vectors []FeatureVector, cfg Config) ([]RowScore, error) {
	if len(vectors) == 0 {
		return nil, apperrors.ErrEmptyFeatures
	}
	x := Matrix(vectors)

	forest := NewIsolationForest(cfg)
	if err := forest.Fit(x); err != nil {
		return nil, fmt.Errorf("fit isolation forest: %w", err)
	}
	isoRaw := forest.DecisionFunction(x)
	for i := range isoRaw {
		isoRaw[i] = -isoRaw[i]
	}

	lof := NewLocalOutlierFactor(cfg)
	if err := lof.Fit(x); err != nil {
		return nil, fmt.Errorf("fit local outlier factor: %w", err)
	}
	lofRaw := lof.Factors()

	iso := MinMaxNormalize(isoRaw)
	den := MinMaxNormalize(lofRaw)

	scores := make([]RowScore, len(vectors))
	for i, v := range vectors {
		scores[i] = RowScore{
			Row:        v.Row,
			IsoRaw:     isoRaw[i],
			LofRaw:     lofRaw[i],
			Iso:        iso[i],
			Lof:        den[i],
			IsoAnomaly: iso[i] > cfg.ModelFlagThreshold,
			LofAnomaly: den[i] > cfg.ModelFlagThreshold,
		}
	}
	return scores, nil
}
