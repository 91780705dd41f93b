// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../iface.go -destination mock_ngxauth/mock_iface.go
//go:generate mockgen -source ../oidc/oidc_iface.go -destination mock_oidc/mock_oidc_iface.go
