package models

// TableQuery narrows a result table to a date range (YYYY-MM-DD or
// YYYYMMDD, both inclusive).
type TableQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}
