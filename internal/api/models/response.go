package models

// ResultInfo describes one saved result table
type ResultInfo struct {
	Table     string `json:"table"` // file base name, e.g. portfolio_nv
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Groups    int    `json:"groups"`
	Filled    []int  `json:"filled"`
	FirstDate string `json:"first_date,omitempty"`
	LastDate  string `json:"last_date,omitempty"`
	CSVURL    string `json:"csv_url"`
	PNGURL    string `json:"png_url,omitempty"`
}

// TableResponse is a result table in row form
type TableResponse struct {
	Table   string     `json:"table"`
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is one date of a result table. Missing cells are null.
type TableRow struct {
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}

// LastValue is the final recorded net value of one group
type LastValue struct {
	Group string   `json:"group"`
	Date  string   `json:"date,omitempty"`
	Value *float64 `json:"value"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
