package repository_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"

	"github.com/go-sql-driver/mysql"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = []byte(v.(string))
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

// fakeDB serves problems by id and enforces a unique (user, problem) key on
// problem_solved inserts.
type fakeDB struct {
	mu       sync.Mutex
	problems map[string][]interface{}
	solved   map[string]bool
	queries  int
	execErr  error
	// gate, when set, holds problem loads until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeDB() *fakeDB {
	return &fakeDB{problems: map[string][]interface{}{}, solved: map[string]bool{}}
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	if f.gate != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return fakeRow{err: ctx.Err()}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	values, ok := f.problems[args[0].(string)]
	if !ok {
		return fakeRow{err: sql.ErrNoRows}
	}
	return fakeRow{values: values}
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	key := fmt.Sprintf("%v/%v", args[0], args[1])
	if f.solved[key] {
		return nil, &mysql.MySQLError{Number: 1062, Message: fmt.Sprintf("Duplicate entry '%s' for key 'uk_user_problem'", key)}
	}
	f.solved[key] = true
	return fakeResult{}, nil
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) Close() error { return nil }

type fakeProducer struct {
	mu       sync.Mutex
	messages map[string][]*mq.Message
	err      error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.messages == nil {
		p.messages = map[string][]*mq.Message{}
	}
	p.messages[topic] = append(p.messages[topic], message)
	return nil
}

func (p *fakeProducer) PublishBatch(ctx context.Context, topic string, messages []*mq.Message) error {
	for _, m := range messages {
		if err := p.Publish(ctx, topic, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

var _ storage.ObjectStorage = (*fakeObjectStorage)(nil)

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeObjectStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != sizeBytes {
		return fmt.Errorf("size mismatch: %d != %d", len(data), sizeBytes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+objectKey] = data
	s.types[bucket+"/"+objectKey] = contentType
	return nil
}

func (s *fakeObjectStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
