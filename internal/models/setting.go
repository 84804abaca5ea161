package models

type AppSetting struct {
	Key         string  `json:"setting_key" db:"setting_key"`
	Value       string  `json:"setting_value" db:"setting_value"`
	Description *string `json:"description,omitempty" db:"description"`
}
