package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-queue/internal/config"
)

// Record is the persisted summary of one stress run.
type Record struct {
	RecordedAt time.Time
	Actor      string
	Discipline string
	Seed       uint64
	Producers  int
	Consumers  int
	Messages   int
	Sent       int
	Received   int
	Elapsed    time.Duration
	// Problems lists failed checks; empty for a clean run.
	Problems []string
	// Error is the run error, if any.
	Error string
}

// OK reports whether the run passed.
func (r *Record) OK() bool {
	return len(r.Problems) == 0 && r.Error == ""
}

// Repository defines persistence operations for run history.
type Repository interface {
	Load(ctx context.Context) ([]*Record, error)
	Append(ctx context.Context, record *Record) error
}

// FileRepository persists run history to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) over structpb
// values so the file stays a plain, schema-free document.
type FileRepository struct {
	// path is the filesystem location of the JSON history file.
	path string
	// mu protects concurrent access to the history file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the history file does not exist yet.
	ErrNotFound = errors.New("history not found")
	// errMalformedRecord is returned when a stored entry is not an object.
	errMalformedRecord = errors.New("malformed history record")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads every record from disk, oldest first.
func (r *FileRepository) Load(_ context.Context) ([]*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

// Append adds record to the end of the history file, creating it when missing.
func (r *FileRepository) Append(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	records = append(records, record)

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(records))}
	for _, rec := range records {
		list.Values = append(list.Values, structpb.NewStructValue(toProto(rec)))
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}

	return nil
}

// load reads the history without locking.
func (r *FileRepository) load() ([]*Record, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read history file: %w", err)
	}

	var list structpb.ListValue
	if err = protojson.Unmarshal(contents, &list); err != nil {
		return nil, fmt.Errorf("decode history file: %w", err)
	}

	records := make([]*Record, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		s := value.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w: entry %d", errMalformedRecord, i)
		}

		records = append(records, fromProto(s))
	}

	return records, nil
}

// toProto converts a Record into a protobuf Struct.
func toProto(rec *Record) *structpb.Struct {
	problems := make([]*structpb.Value, 0, len(rec.Problems))
	for _, p := range rec.Problems {
		problems = append(problems, structpb.NewStringValue(p))
	}

	// Seeds are stored as strings: they exceed the exact range of JSON numbers.
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"recorded_at": structpb.NewStringValue(rec.RecordedAt.UTC().Format(time.RFC3339Nano)),
		"actor":       structpb.NewStringValue(rec.Actor),
		"discipline":  structpb.NewStringValue(rec.Discipline),
		"seed":        structpb.NewStringValue(strconv.FormatUint(rec.Seed, 10)),
		"producers":   structpb.NewNumberValue(float64(rec.Producers)),
		"consumers":   structpb.NewNumberValue(float64(rec.Consumers)),
		"messages":    structpb.NewNumberValue(float64(rec.Messages)),
		"sent":        structpb.NewNumberValue(float64(rec.Sent)),
		"received":    structpb.NewNumberValue(float64(rec.Received)),
		"elapsed":     structpb.NewStringValue(rec.Elapsed.String()),
		"problems":    structpb.NewListValue(&structpb.ListValue{Values: problems}),
		"error":       structpb.NewStringValue(rec.Error),
	}}
}

// fromProto converts a protobuf Struct back into a Record.
// Unknown or missing fields keep their zero values.
func fromProto(s *structpb.Struct) *Record {
	fields := s.GetFields()

	str := func(key string) string {
		return fields[key].GetStringValue()
	}

	num := func(key string) int {
		return int(fields[key].GetNumberValue())
	}

	rec := &Record{
		Actor:      str("actor"),
		Discipline: str("discipline"),
		Producers:  num("producers"),
		Consumers:  num("consumers"),
		Messages:   num("messages"),
		Sent:       num("sent"),
		Received:   num("received"),
		Error:      str("error"),
	}

	if t, err := time.Parse(time.RFC3339Nano, str("recorded_at")); err == nil {
		rec.RecordedAt = t
	}

	if seed, err := strconv.ParseUint(str("seed"), 10, 64); err == nil {
		rec.Seed = seed
	}

	if d, err := time.ParseDuration(str("elapsed")); err == nil {
		rec.Elapsed = d
	}

	for _, p := range fields["problems"].GetListValue().GetValues() {
		rec.Problems = append(rec.Problems, p.GetStringValue())
	}

	return rec
}
