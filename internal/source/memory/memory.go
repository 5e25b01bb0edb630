// Package memory serves records, beneficiaries and regions from JSON files
// for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"billview/internal/core"
	"billview/internal/source"
)

const (
	recordsFile       = "billing_items.json"
	beneficiariesFile = "beneficiaries.json"
	regionsFile       = "regions.json"
)

type Store struct {
	mu            sync.Mutex
	records       []core.Record
	beneficiaries []core.Beneficiary
	regions       map[string]core.Region
	nextID        int
}

var (
	_ source.RecordSource     = (*Store)(nil)
	_ source.BeneficiaryStore = (*Store)(nil)
	_ source.RegionLookup     = (*Store)(nil)
)

func New(records []core.Record, beneficiaries []core.Beneficiary, regions []core.Region) *Store {
	s := &Store{
		records:       append([]core.Record(nil), records...),
		beneficiaries: append([]core.Beneficiary(nil), beneficiaries...),
		regions:       make(map[string]core.Region, len(regions)),
	}
	for _, r := range regions {
		s.regions[regionKey(r.CenterName)] = r
	}
	for _, b := range s.beneficiaries {
		if n, err := strconv.Atoi(b.ID); err == nil && n > s.nextID {
			s.nextID = n
		}
	}
	return s
}

// NewFromFiles loads whichever seed files exist under dir. Missing files
// leave the corresponding list empty; malformed files are an error.
func NewFromFiles(dir string) (*Store, error) {
	var (
		records       []core.Record
		beneficiaries []core.Beneficiary
		regions       []core.Region
	)
	for name, dst := range map[string]any{
		recordsFile:       &records,
		beneficiariesFile: &beneficiaries,
		regionsFile:       &regions,
	} {
		if err := readJSON(filepath.Join(dir, name), dst); err != nil {
			return nil, err
		}
	}
	return New(records, beneficiaries, regions), nil
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) FetchRecords(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.records...), nil
}

func (s *Store) ListBeneficiaries(_ context.Context) ([]core.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Beneficiary{}, s.beneficiaries...), nil
}

// CreateBeneficiary assigns the next numeric id when none is given.
func (s *Store) CreateBeneficiary(_ context.Context, b core.Beneficiary, _ string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		s.nextID++
		b.ID = strconv.Itoa(s.nextID)
	}
	if s.indexOf(b.ID) >= 0 {
		return fmt.Errorf("beneficiary %s already exists", b.ID)
	}
	s.beneficiaries = append(s.beneficiaries, b)
	return nil
}

func (s *Store) UpdateBeneficiary(_ context.Context, b core.Beneficiary, _ string) error {
	if b.ID == "" {
		return core.ErrMissingBeneficiaryID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(b.ID)
	if i < 0 {
		return source.ErrNotFound
	}
	s.beneficiaries[i] = b
	return nil
}

func (s *Store) DeleteBeneficiary(_ context.Context, id string, _ string) error {
	if id == "" {
		return core.ErrMissingBeneficiaryID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return source.ErrNotFound
	}
	s.beneficiaries = append(s.beneficiaries[:i], s.beneficiaries[i+1:]...)
	return nil
}

func (s *Store) LookupRegion(_ context.Context, centerName string) (core.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[regionKey(centerName)]
	if !ok {
		return core.Region{}, source.ErrNotFound
	}
	return r, nil
}

func (s *Store) indexOf(id string) int {
	for i, b := range s.beneficiaries {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func regionKey(center string) string {
	return strings.ToLower(strings.TrimSpace(center))
}
