package enums

import "slices"

// SequenceTable identifies the document family a readable id is issued for.
type SequenceTable string

const (
	SequenceJob           SequenceTable = "job"
	SequencePurchaseOrder SequenceTable = "purchaseOrder"
	SequenceStockTransfer SequenceTable = "stockTransfer"
)

var validSequenceTables = []SequenceTable{
	SequenceJob,
	SequencePurchaseOrder,
	SequenceStockTransfer,
}

func (s SequenceTable) IsValid() bool {
	return slices.Contains(validSequenceTables, s)
}

// ParseSequenceTable converts raw input into a SequenceTable.
func ParseSequenceTable(value string) (SequenceTable, error) {
	return parseEnum(validSequenceTables, value, "sequence table")
}
