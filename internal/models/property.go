package models

// Property is read-only seed data; BSP is the base sale price.
type Property struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	BSP  int64  `json:"bsp" yaml:"bsp"`
}
