package ports

import "time"

// Metrics registra las métricas del ciclo de scan.
type Metrics interface {
	ScanCompleted(duration time.Duration, wallets, positions, signals int)
	ScanSkipped(reason string)
	WalletFetchFailed()
	SignalPersisted(level string)
	DeliveryResult(ok bool)
}
