package dataset

import (
	"math"

	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// Clean converts raw rows into complete analysis records, excluding any row
// with a missing or out-of-range field. BRFSS codes 9 on _RACEGR3 and
// _EDUCAG mean "missing" and are excluded along with true blanks.
func Clean(rows []Row) []model.AnalysisRecord {
	recs := make([]model.AnalysisRecord, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		rec, ok := toRecord(row)
		if !ok {
			dropped++
			continue
		}
		recs = append(recs, rec)
	}

	zap.L().Info("dataset: cleaned",
		zap.Int("kept", len(recs)),
		zap.Int("dropped", dropped),
	)
	return recs
}

func toRecord(row Row) (model.AnalysisRecord, bool) {
	for _, v := range []float64{
		row.Smoker, row.Rural, row.YearCentered, row.State,
		row.AgeGroup, row.Sex, row.RaceGroup, row.EduGroup, row.Weight,
	} {
		if math.IsNaN(v) {
			return model.AnalysisRecord{}, false
		}
	}
	if row.DesignStratum == "" || row.PSU == "" {
		return model.AnalysisRecord{}, false
	}

	rec := model.AnalysisRecord{
		Smoker:        int(row.Smoker),
		Rural:         int(row.Rural),
		YearCentered:  int(row.YearCentered),
		StateFIPS:     int(row.State),
		AgeGroup:      int(row.AgeGroup),
		Sex:           int(row.Sex),
		RaceGroup:     int(row.RaceGroup),
		EduGroup:      int(row.EduGroup),
		Weight:        row.Weight,
		DesignStratum: row.DesignStratum,
		PSU:           row.PSU,
	}

	if rec.Smoker != 0 && rec.Smoker != 1 {
		return model.AnalysisRecord{}, false
	}
	if rec.Rural != 0 && rec.Rural != 1 {
		return model.AnalysisRecord{}, false
	}
	if rec.Weight <= 0 {
		return model.AnalysisRecord{}, false
	}
	if _, ok := model.AgeLabels[rec.AgeGroup]; !ok {
		return model.AnalysisRecord{}, false
	}
	if _, ok := model.SexLabels[rec.Sex]; !ok {
		return model.AnalysisRecord{}, false
	}
	if _, ok := model.RaceLabels[rec.RaceGroup]; !ok {
		return model.AnalysisRecord{}, false
	}
	if _, ok := model.EduLabels[rec.EduGroup]; !ok {
		return model.AnalysisRecord{}, false
	}
	if _, ok := model.YearLabels[rec.YearCentered]; !ok {
		return model.AnalysisRecord{}, false
	}

	return rec, true
}
