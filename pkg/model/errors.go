package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDomainNotProvisioned indicates that no zone of a provider covers a declared domain.
	ErrDomainNotProvisioned = errors.New("domain not provisioned")

	// ErrUnsupportedPagination indicates a provider reported more results than were fetched.
	ErrUnsupportedPagination = errors.New("unsupported pagination")

	// ErrUnsupportedConfiguration indicates an invalid record declaration.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// ErrProviderAPI indicates a provider rejected a request or returned an error body.
	ErrProviderAPI = errors.New("provider api error")

	// ErrUnauthorized indicates missing or invalid provider credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainNotProvisionedError names the domain for which no zone was found.
type DomainNotProvisionedError struct {
	Domain string
}

func (e *DomainNotProvisionedError) Error() string {
	return fmt.Sprintf("unable to find domain %q: looks like the top-level DNS zone for the domain is not provisioned", e.Domain)
}

func (e *DomainNotProvisionedError) Is(target error) bool {
	return target == ErrDomainNotProvisioned
}

// ProvisioningError wraps a provider failure with the record that triggered it.
type ProvisioningError struct {
	Adapter string
	Record  Record
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: provisioning %s: %v", e.Adapter, e.Record, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
