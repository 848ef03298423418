// Package memory is an in-memory engine.Store used by tests and local
// experiments. A transaction takes a snapshot of the mutable state under a
// single mutex and restores it when the callback fails, which gives the same
// all-or-nothing behavior as the postgres store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/reservations"
	"github.com/nRudzy/medicandle-sub000/internal/engine"
)

type Store struct {
	mu sync.Mutex

	materials    map[int64]materials.Material
	products     map[int64]orders.Product
	recipes      map[int64][]orders.RecipeEntry
	orders       map[uuid.UUID]orders.Order
	movements    []ledger.Movement
	reservations map[uuid.UUID][]reservations.Reservation

	nextMovementID int64
}

var _ engine.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		materials:    make(map[int64]materials.Material),
		products:     make(map[int64]orders.Product),
		recipes:      make(map[int64][]orders.RecipeEntry),
		orders:       make(map[uuid.UUID]orders.Order),
		reservations: make(map[uuid.UUID][]reservations.Reservation),
	}
}

/* Seeding */

func (s *Store) PutMaterial(m materials.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.ID] = m
}

func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) PutRecipe(productID int64, entries []orders.RecipeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[productID] = append([]orders.RecipeEntry(nil), entries...)
}

func (s *Store) PutOrder(o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

/* Reads */

func (s *Store) Material(_ context.Context, id int64) (*materials.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) Materials(_ context.Context) ([]materials.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]materials.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Product(_ context.Context, id int64) (*orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) Recipe(_ context.Context, productID int64) ([]orders.RecipeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orders.RecipeEntry(nil), s.recipes[productID]...), nil
}

func (s *Store) Order(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *Store) MovementsForMaterial(_ context.Context, materialID int64) ([]ledger.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Movement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].MaterialID == materialID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

func (s *Store) MovementsForSource(_ context.Context, sourceType ledger.SourceType, sourceID string) ([]ledger.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Movement
	for i := len(s.movements) - 1; i >= 0; i-- {
		mv := s.movements[i]
		if mv.SourceType == sourceType && mv.SourceID == sourceID {
			out = append(out, mv)
		}
	}
	return out, nil
}

/* Transactions */

type snapshot struct {
	materials      map[int64]materials.Material
	movements      []ledger.Movement
	reservations   map[uuid.UUID][]reservations.Reservation
	nextMovementID int64
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		materials:      make(map[int64]materials.Material, len(s.materials)),
		movements:      append([]ledger.Movement(nil), s.movements...),
		reservations:   make(map[uuid.UUID][]reservations.Reservation, len(s.reservations)),
		nextMovementID: s.nextMovementID,
	}
	for id, m := range s.materials {
		snap.materials[id] = m
	}
	for id, rs := range s.reservations {
		snap.reservations[id] = append([]reservations.Reservation(nil), rs...)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.materials = snap.materials
	s.movements = snap.movements
	s.reservations = snap.reservations
	s.nextMovementID = snap.nextMovementID
}

func (s *Store) WithTx(_ context.Context, fn func(tx engine.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memTx struct{ s *Store }

var _ engine.Tx = (*memTx)(nil)

func (t *memTx) MaterialsForUpdate(_ context.Context, ids []int64) (map[int64]*materials.Material, error) {
	out := make(map[int64]*materials.Material, len(ids))
	for _, id := range ids {
		if m, ok := t.s.materials[id]; ok {
			copied := m
			out[id] = &copied
		}
	}
	return out, nil
}

func (t *memTx) AddReserved(_ context.Context, materialID int64, delta decimal.Decimal) error {
	m, ok := t.s.materials[materialID]
	if !ok {
		return fmt.Errorf("material %d not found", materialID)
	}
	m.ReservedStock = m.ReservedStock.Add(delta)
	t.s.materials[materialID] = m
	return nil
}

func (t *memTx) ApplyMovement(_ context.Context, mv *ledger.Movement) error {
	m, ok := t.s.materials[mv.MaterialID]
	if !ok {
		return fmt.Errorf("material %d not found", mv.MaterialID)
	}
	t.s.nextMovementID++
	mv.ID = t.s.nextMovementID
	mv.CreatedAt = time.Now().UTC()

	m.PhysicalStock = m.PhysicalStock.Add(mv.QuantityDelta)
	t.s.materials[mv.MaterialID] = m
	t.s.movements = append(t.s.movements, *mv)
	return nil
}

func (t *memTx) InsertReservations(_ context.Context, rows []reservations.Reservation) error {
	for _, row := range rows {
		held := t.s.reservations[row.OrderID]
		merged := false
		for i := range held {
			if held[i].MaterialID == row.MaterialID {
				held[i].Quantity = held[i].Quantity.Add(row.Quantity)
				merged = true
				break
			}
		}
		if !merged {
			held = append(held, row)
		}
		t.s.reservations[row.OrderID] = held
	}
	return nil
}

func (t *memTx) ReservationsForOrder(_ context.Context, orderID uuid.UUID) ([]reservations.Reservation, error) {
	return append([]reservations.Reservation(nil), t.s.reservations[orderID]...), nil
}

func (t *memTx) DeleteReservations(_ context.Context, orderID uuid.UUID) error {
	delete(t.s.reservations, orderID)
	return nil
}
