package storage

import (
	"time"

	"envelope/internal/core"
)

// Result names under which the catalog load queries collect their rows.
const (
	ResultBudgets        = "budgets"
	ResultGlobalSettings = "globalSettings"
)

// InsertBudget upserts a budget row with the knowledge stamp carried on the
// entity.
func InsertBudget(b core.Budget) Query {
	return Query{
		SQL: `REPLACE INTO Budgets (entityId, budgetName, dataFormat, lastAccessedOn,
		        firstMonth, lastMonth, isCloudSynced, isTombstone, deviceKnowledge)
		      VALUES (?,?,?,?,?,?,?,?,?)`,
		Args: []any{
			b.EntityID, b.BudgetName, b.DataFormat, b.LastAccessedOn,
			b.FirstMonth.String(), b.LastMonth.String(),
			boolToInt(b.IsCloudSynced), boolToInt(b.IsTombstone), b.DeviceKnowledge,
		},
	}
}

// LoadBudgets selects budgets changed since the given catalog watermark.
// Rows with a zero stamp predate knowledge tracking and are always returned.
func LoadBudgets(sinceKnowledge int64) Query {
	return Query{
		Name: ResultBudgets,
		SQL:  `SELECT * FROM Budgets WHERE deviceKnowledge = 0 OR deviceKnowledge > ?`,
		Args: []any{sinceKnowledge},
	}
}

// AllBudgets selects every budget row, tombstoned or not.
func AllBudgets() Query {
	return Query{Name: ResultBudgets, SQL: `SELECT * FROM Budgets`, Args: []any{}}
}

// FindBudgetByID selects a single budget.
func FindBudgetByID(budgetID string) Query {
	return Query{
		Name: ResultBudgets,
		SQL:  `SELECT * FROM Budgets WHERE entityId = ?`,
		Args: []any{budgetID},
	}
}

// TouchBudgetLastAccessed bumps a budget's lastAccessedOn to now. Run on
// every load so SelectBudgetToOpen keeps preferring the budget in use.
func TouchBudgetLastAccessed(budgetID string) Query {
	return Query{
		SQL:  `UPDATE Budgets SET lastAccessedOn = ? WHERE entityId = ?`,
		Args: []any{time.Now().UnixMilli(), budgetID},
	}
}

// InsertGlobalSetting upserts a catalog key/value row.
func InsertGlobalSetting(gs core.GlobalSetting) Query {
	return Query{
		SQL:  `REPLACE INTO GlobalSettings (settingName, settingValue, deviceKnowledge) VALUES (?,?,?)`,
		Args: []any{gs.SettingName, gs.SettingValue, gs.DeviceKnowledge},
	}
}

// LoadGlobalSettings selects settings changed since the catalog watermark.
func LoadGlobalSettings(sinceKnowledge int64) Query {
	return Query{
		Name: ResultGlobalSettings,
		SQL:  `SELECT * FROM GlobalSettings WHERE deviceKnowledge = 0 OR deviceKnowledge > ?`,
		Args: []any{sinceKnowledge},
	}
}

// GetGlobalSetting selects one catalog setting by name.
func GetGlobalSetting(name string) Query {
	return Query{
		Name: ResultGlobalSettings,
		SQL:  `SELECT * FROM GlobalSettings WHERE settingName = ?`,
		Args: []any{name},
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
