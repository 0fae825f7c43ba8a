package validator

// PivotColumns are the columns consumers join records on.
var PivotColumns = []string{"id_station", "id_pdc", "date_maj"}

// MissingPivots returns the pivot columns absent from columns, in pivot order.
func MissingPivots(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	var missing []string

	for _, pivot := range PivotColumns {
		if !present[pivot] {
			missing = append(missing, pivot)
		}
	}

	return missing
}
