// internal/escrow/records.go
package escrow

import "escrow-service/internal/domain"

// recordStore keeps every fulfillment record of one escrow instance plus
// the per-payer index. Records are append-only: ids are dense, start at 1
// and increase strictly in creation order. Access is serialized by the
// owning instance.
type recordStore struct {
	records    []*domain.FulfillmentRecord
	payerIndex map[string][]uint64
}

func newRecordStore() *recordStore {
	return &recordStore{
		payerIndex: make(map[string][]uint64),
	}
}

func (s *recordStore) nextID() uint64 {
	return uint64(len(s.records)) + 1
}

func (s *recordStore) append(rec *domain.FulfillmentRecord) {
	s.records = append(s.records, rec)
	s.payerIndex[rec.Payer] = append(s.payerIndex[rec.Payer], rec.ID)
}

func (s *recordStore) get(id uint64) (*domain.FulfillmentRecord, bool) {
	if id == 0 || id > uint64(len(s.records)) {
		return nil, false
	}
	return s.records[id-1], true
}

func (s *recordStore) byPayer(payer string) []domain.FulfillmentRecord {
	ids := s.payerIndex[payer]
	out := make([]domain.FulfillmentRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.records[id-1])
	}
	return out
}
