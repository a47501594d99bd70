package enums

import "slices"

// ItemLedgerEntryType classifies a quantity movement.
type ItemLedgerEntryType string

const (
	LedgerEntryPurchase    ItemLedgerEntryType = "Purchase"
	LedgerEntrySale        ItemLedgerEntryType = "Sale"
	LedgerEntryPositive    ItemLedgerEntryType = "Positive Adjmt."
	LedgerEntryNegative    ItemLedgerEntryType = "Negative Adjmt."
	LedgerEntryTransfer    ItemLedgerEntryType = "Transfer"
	LedgerEntryConsumption ItemLedgerEntryType = "Consumption"
	LedgerEntryOutput      ItemLedgerEntryType = "Output"
)

var validItemLedgerEntryTypes = []ItemLedgerEntryType{
	LedgerEntryPurchase,
	LedgerEntrySale,
	LedgerEntryPositive,
	LedgerEntryNegative,
	LedgerEntryTransfer,
	LedgerEntryConsumption,
	LedgerEntryOutput,
}

func (t ItemLedgerEntryType) IsValid() bool {
	return slices.Contains(validItemLedgerEntryTypes, t)
}

// ItemLedgerDocumentType names the document a ledger entry is posted against.
type ItemLedgerDocumentType string

const (
	LedgerDocumentDirectTransfer  ItemLedgerDocumentType = "Direct Transfer"
	LedgerDocumentPurchaseReceipt ItemLedgerDocumentType = "Purchase Receipt"
	LedgerDocumentSalesShipment   ItemLedgerDocumentType = "Sales Shipment"
	LedgerDocumentJobConsumption  ItemLedgerDocumentType = "Job Consumption"
	LedgerDocumentJobReceipt      ItemLedgerDocumentType = "Job Receipt"
)

var validItemLedgerDocumentTypes = []ItemLedgerDocumentType{
	LedgerDocumentDirectTransfer,
	LedgerDocumentPurchaseReceipt,
	LedgerDocumentSalesShipment,
	LedgerDocumentJobConsumption,
	LedgerDocumentJobReceipt,
}

func (t ItemLedgerDocumentType) IsValid() bool {
	return slices.Contains(validItemLedgerDocumentTypes, t)
}
