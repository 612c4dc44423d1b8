package repository

// Repositories agrupa los puertos atados a una misma unidad de trabajo (transacción).
type Repositories struct {
	Transfers     TransferRepository
	Shipments     ShipmentRepository
	Receipts      ReceiptRepository
	Discrepancies DiscrepancyRepository
	Ledger        StockLedgerRepository
	Stock         StockRepository
	Impacts       FinancialImpactRepository
	Locations     LocationRepository
}
