package ca

import (
	"context"
	"fmt"
	"math/big"
)

// MockStore is an in-memory Store with error injection and call tracking
// for engine tests.
type MockStore struct {
	cas   map[string]*Authority
	certs map[string]*Certificate

	nextSerial int64

	// Error injection
	SaveCAErr     error
	LoadCAErr     error
	SaveCertErr   error
	NextSerialErr error

	// Call tracking
	SaveCACalls     int
	SaveCertCalls   int
	NextSerialCalls int
}

var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		cas:        make(map[string]*Authority),
		certs:      make(map[string]*Certificate),
		nextSerial: 1,
	}
}

func (m *MockStore) SaveCA(_ context.Context, authority *Authority) error {
	m.SaveCACalls++
	if m.SaveCAErr != nil {
		return m.SaveCAErr
	}
	if _, ok := m.cas[authority.Name]; ok {
		return fmt.Errorf("%w: %s", ErrCAExists, authority.Name)
	}
	m.cas[authority.Name] = authority
	return nil
}

func (m *MockStore) LoadCA(_ context.Context, name string) (*Authority, error) {
	if m.LoadCAErr != nil {
		return nil, m.LoadCAErr
	}
	authority, ok := m.cas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCANotFound, name)
	}
	return authority, nil
}

func (m *MockStore) SaveCert(_ context.Context, caName string, cert *Certificate) error {
	m.SaveCertCalls++
	if m.SaveCertErr != nil {
		return m.SaveCertErr
	}
	m.certs[caName+"/"+cert.Serial] = cert
	return nil
}

func (m *MockStore) LoadCert(_ context.Context, caName, serial string) (*Certificate, error) {
	cert, ok := m.certs[caName+"/"+serial]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCertNotFound, serial)
	}
	return cert, nil
}

func (m *MockStore) NextSerial(_ context.Context, _ string) (*big.Int, error) {
	m.NextSerialCalls++
	if m.NextSerialErr != nil {
		return nil, m.NextSerialErr
	}
	serial := big.NewInt(m.nextSerial)
	m.nextSerial++
	return serial, nil
}

func (m *MockStore) ListCAs(_ context.Context) ([]string, error) {
	var names []string
	for name := range m.cas {
		names = append(names, name)
	}
	return names, nil
}

func (m *MockStore) Children(_ context.Context, name string) ([]string, error) {
	var children []string
	for _, authority := range m.cas {
		if authority.Parent == name {
			children = append(children, authority.Name)
		}
	}
	return children, nil
}
