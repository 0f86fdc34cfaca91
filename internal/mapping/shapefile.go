package mapping

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// StateShape is one state boundary read from a census shapefile.
type StateShape struct {
	FIPS int
	Name string
	Geom geom.T
}

// LoadStates reads state polygons from a TIGER/cartographic-boundary style
// shapefile. The dbf must carry STATEFP and NAME fields. Records with
// unparseable attributes or degenerate geometry are skipped, not fatal.
func LoadStates(path string) ([]StateShape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	fipsIdx, ok := fieldIdx["statefp"]
	if !ok {
		return nil, eris.Errorf("mapping: shapefile %s has no STATEFP field", path)
	}
	nameIdx, ok := fieldIdx["name"]
	if !ok {
		return nil, eris.Errorf("mapping: shapefile %s has no NAME field", path)
	}

	var states []StateShape
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		fipsRaw := strings.TrimSpace(strings.TrimRight(reader.Attribute(fipsIdx), "\x00"))
		fips, err := strconv.Atoi(fipsRaw)
		if err != nil {
			skipped++
			continue
		}
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		states = append(states, StateShape{FIPS: fips, Name: name, Geom: g})
	}

	if skipped > 0 {
		zap.L().Debug("mapping: skipped shapefile records", zap.Int("skipped", skipped))
	}
	if len(states) == 0 {
		return nil, eris.Errorf("mapping: shapefile %s yielded no state polygons", path)
	}
	return states, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("mapping: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("mapping: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
