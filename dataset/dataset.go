// Package dataset reads trajectories exported by estimators and ground truth recordings.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/trajeval/spatialmath"
	"go.viam.com/trajeval/trajectory"
	"go.viam.com/trajeval/utils"
)

// Format names a supported file layout.
type Format string

// The supported formats. All are comma separated with nanosecond timestamps in the first column and
// quaternions stored w, x, y, z.
const (
	// EuRoCGroundTruth is the EuRoC MAV state ground truth: timestamp, p xyz, q wxyz, then velocities and biases.
	EuRoCGroundTruth Format = "euroc_ground_truth"
	// Rovioli is the rovioli pose export: timestamp, p_G_I xyz, q_G_I wxyz, p_M_I xyz, q_M_I wxyz, and the
	// localization state. Rows whose localization state is 1 are localization events.
	Rovioli Format = "rovioli"
	// MaplabVertices is the maplab vertex export: timestamp, vertex id, mission id, p_G xyz, q_G wxyz, and more.
	MaplabVertices Format = "maplab_vertices"
)

// quaternionNormTolerance is how far from unit norm a stored quaternion may be and still be renormalized.
const quaternionNormTolerance = 1e-2

// contextCheckInterval is how many rows are read between context checks.
const contextCheckInterval = 1024

// Dataset is a loaded trajectory and, for formats that record them, its localization events.
type Dataset struct {
	Trajectory *trajectory.Trajectory
	// Events is nil when the format records no localization state.
	Events *trajectory.EventMask
}

// A Loader loads a Dataset from a file.
type Loader interface {
	Load(ctx context.Context, path string) (*Dataset, error)
}

type layout struct {
	position    int
	orientation int
	event       int
}

var layouts = map[Format]layout{
	EuRoCGroundTruth: {position: 1, orientation: 4, event: -1},
	Rovioli:          {position: 1, orientation: 4, event: 15},
	MaplabVertices:   {position: 3, orientation: 6, event: -1},
}

// Formats returns every supported format.
func Formats() []Format {
	return []Format{EuRoCGroundTruth, Rovioli, MaplabVertices}
}

// NewLoader returns a Loader for the given format.
func NewLoader(format Format) (Loader, error) {
	l, ok := layouts[format]
	if !ok {
		return nil, errors.Errorf("unknown dataset format %q", format)
	}
	return &csvLoader{format: format, layout: l}, nil
}

type csvLoader struct {
	format Format
	layout layout
}

func (cl *csvLoader) Load(ctx context.Context, path string) (*Dataset, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	ds, err := cl.read(ctx, f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s dataset %s", cl.format, path)
	}
	return ds, nil
}

// Read parses a dataset in the given format from r.
func Read(ctx context.Context, r io.Reader, format Format) (*Dataset, error) {
	l, ok := layouts[format]
	if !ok {
		return nil, errors.Errorf("unknown dataset format %q", format)
	}
	return (&csvLoader{format: format, layout: l}).read(ctx, r)
}

func (cl *csvLoader) read(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	minFields := cl.layout.orientation + 4
	if cl.layout.event >= minFields {
		minFields = cl.layout.event + 1
	}

	var samples []trajectory.Sample
	var events []int
	for row := 0; ; row++ {
		if row%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if row == 0 && isHeader(record) {
			continue
		}
		if len(record) < minFields {
			return nil, errors.Errorf("line %d: expected at least %d fields, got %d", line, minFields, len(record))
		}

		sample, err := cl.parseSample(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if cl.layout.event >= 0 {
			flag, err := strconv.ParseFloat(strings.TrimSpace(record[cl.layout.event]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: localization state", line)
			}
			if flag == 1 {
				events = append(events, len(samples))
			}
		}
		samples = append(samples, sample)
	}

	traj, err := trajectory.New(samples)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Trajectory: traj}
	if cl.layout.event >= 0 {
		ds.Events = trajectory.NewEventMask(events)
	}
	return ds, nil
}

func (cl *csvLoader) parseSample(record []string) (trajectory.Sample, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return trajectory.Sample{}, errors.Wrap(err, "timestamp")
	}
	p, err := parseFloats(record[cl.layout.position : cl.layout.position+3])
	if err != nil {
		return trajectory.Sample{}, errors.Wrap(err, "position")
	}
	q, err := parseFloats(record[cl.layout.orientation : cl.layout.orientation+4])
	if err != nil {
		return trajectory.Sample{}, errors.Wrap(err, "orientation")
	}
	orientation := quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
	if norm := quat.Abs(orientation); !utils.Float64AlmostEqual(norm, 1, quaternionNormTolerance) {
		return trajectory.Sample{}, errors.Errorf("orientation norm %f is not 1", norm)
	}
	return trajectory.NewSample(ts, r3.Vector{X: p[0], Y: p[1], Z: p[2]}, spatialmath.Normalize(orientation)), nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("value %q is not finite", strings.TrimSpace(f))
		}
		out[i] = v
	}
	return out, nil
}

// isHeader reports whether record is a column header rather than data.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	return err != nil
}
