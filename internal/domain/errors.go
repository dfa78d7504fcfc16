package domain

import "errors"

var (
	// ErrInvalidAddress indica que la dirección no es una dirección EVM válida.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrWalletNotFound indica que la wallet no está en el roster.
	ErrWalletNotFound = errors.New("wallet not found")
)
