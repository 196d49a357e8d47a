// Package servicetest provides an in-memory DocumentStore for tests.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"product-store/internal/model"
	"product-store/internal/service"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ service.DocumentStore = (*MemStore)(nil)

// MemStore keeps products in insertion order and understands the filters the
// product service builds: exact "id" matches and "$gt"/"$lt" on "price".
type MemStore struct {
	mu    sync.Mutex
	order []uuid.UUID
	docs  map[uuid.UUID]model.Product
	calls map[string]int

	// Injected failures, returned by the matching operation when set.
	InsertErr error
	FindErr   error
	DeleteErr error

	// BeforeMutation runs at the start of FindOneAndUpdate and DeleteOne,
	// after the service's existence check. Tests use it to simulate races.
	BeforeMutation func(s *MemStore)
}

func NewMemStore(products ...model.Product) *MemStore {
	s := &MemStore{
		docs:  map[uuid.UUID]model.Product{},
		calls: map[string]int{},
	}
	for _, p := range products {
		s.put(p)
	}
	return s
}

// Calls returns how many times op was invoked.
func (s *MemStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Remove deletes a document without counting a call.
func (s *MemStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
}

func (s *MemStore) InsertOne(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["InsertOne"]++

	if s.InsertErr != nil {
		return s.InsertErr
	}
	if _, ok := s.docs[product.ID]; ok {
		return fmt.Errorf("E11000 duplicate key error collection: products index: id_1 dup key: %s", product.ID)
	}
	s.put(*product)
	return nil
}

func (s *MemStore) FindOne(_ context.Context, filter bson.M) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindOne"]++

	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, id := range s.order {
		p := s.docs[id]
		if matches(p, filter) {
			return &p, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *MemStore) FindOneAndUpdate(_ context.Context, filter bson.M, set bson.M) (*model.Product, error) {
	s.runHook()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindOneAndUpdate"]++

	for _, id := range s.order {
		p := s.docs[id]
		if !matches(p, filter) {
			continue
		}
		if err := apply(&p, set); err != nil {
			return nil, err
		}
		s.docs[id] = p
		return &p, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (s *MemStore) Find(_ context.Context, filter bson.M) (service.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Find"]++

	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var out []model.Product
	for _, id := range s.order {
		if p := s.docs[id]; matches(p, filter) {
			out = append(out, p)
		}
	}
	return &SliceCursor{Products: out}, nil
}

func (s *MemStore) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	s.runHook()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteOne"]++

	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	for _, id := range s.order {
		if matches(s.docs[id], filter) {
			s.remove(id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) runHook() {
	if s.BeforeMutation != nil {
		s.BeforeMutation(s)
	}
}

func (s *MemStore) put(p model.Product) {
	if _, ok := s.docs[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.docs[p.ID] = p
}

func (s *MemStore) remove(id uuid.UUID) {
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func matches(p model.Product, filter bson.M) bool {
	for field, cond := range filter {
		switch field {
		case "id":
			id, ok := cond.(uuid.UUID)
			if !ok || id != p.ID {
				return false
			}
		case "price":
			ops, ok := cond.(bson.M)
			if !ok {
				if v, isFloat := cond.(float64); !isFloat || v != p.Price {
					return false
				}
				continue
			}
			if gt, ok := ops["$gt"].(float64); ok && !(p.Price > gt) {
				return false
			}
			if lt, ok := ops["$lt"].(float64); ok && !(p.Price < lt) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func apply(p *model.Product, set bson.M) error {
	for field, v := range set {
		var ok bool
		switch field {
		case "name":
			p.Name, ok = v.(string)
		case "quantity":
			p.Quantity, ok = v.(int)
		case "price":
			p.Price, ok = v.(float64)
		case "status":
			p.Status, ok = v.(bool)
		case "created_at":
			p.CreatedAt, ok = v.(time.Time)
		case "updated_at":
			p.UpdatedAt, ok = v.(time.Time)
		}
		if !ok {
			return fmt.Errorf("cannot set %q to %T", field, v)
		}
	}
	return nil
}

// SliceCursor iterates a fixed slice. It is exhausted after one pass.
type SliceCursor struct {
	Products []model.Product
	// FailAt makes Next stop and Err report FailErr once this many documents were read.
	FailAt  int
	FailErr error

	pos     int
	current model.Product
	err     error
	Closed  bool
}

func (c *SliceCursor) Next(context.Context) bool {
	if c.Closed || c.err != nil {
		return false
	}
	if c.FailErr != nil && c.pos == c.FailAt {
		c.err = c.FailErr
		return false
	}
	if c.pos >= len(c.Products) {
		return false
	}
	c.current = c.Products[c.pos]
	c.pos++
	return true
}

func (c *SliceCursor) Decode(val any) error {
	p, ok := val.(*model.Product)
	if !ok {
		return errors.New("servicetest: decode target must be *model.Product")
	}
	*p = c.current
	return nil
}

func (c *SliceCursor) Err() error {
	return c.err
}

func (c *SliceCursor) Close(context.Context) error {
	c.Closed = true
	return nil
}
