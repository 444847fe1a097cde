package storage

import "envelope/internal/knowledge"

// Result names for the knowledge load queries.
const (
	ResultCatalogKnowledge            = "catalogKnowledge"
	ResultBudgetKnowledge             = "budgetKnowledge"
	ResultBudgetKnowledgeFromEntities = "budgetKnowledgeFromEntities"
)

// LoadCatalogKnowledge selects the singleton catalog knowledge row.
func LoadCatalogKnowledge() Query {
	return Query{
		Name: ResultCatalogKnowledge,
		SQL:  `SELECT * FROM CatalogKnowledge WHERE id = 1`,
		Args: []any{},
	}
}

// SaveCatalogKnowledge persists the catalog counters.
func SaveCatalogKnowledge(k *knowledge.Catalog) Query {
	return Query{
		SQL: `REPLACE INTO CatalogKnowledge (id, currentDeviceKnowledge,
		        deviceKnowledgeOfServer, serverKnowledgeOfDevice)
		      VALUES (1,?,?,?)`,
		Args: []any{k.CurrentDeviceKnowledge, k.DeviceKnowledgeOfServer, k.ServerKnowledgeOfDevice},
	}
}

// LoadBudgetKnowledge selects the knowledge row for one budget.
func LoadBudgetKnowledge(budgetID string) Query {
	return Query{
		Name: ResultBudgetKnowledge,
		SQL:  `SELECT * FROM BudgetKnowledge WHERE budgetId = ?`,
		Args: []any{budgetID},
	}
}

// SaveBudgetKnowledge persists both knowledge counters for a budget.
func SaveBudgetKnowledge(budgetID string, k *knowledge.Budget) Query {
	return Query{
		SQL: `REPLACE INTO BudgetKnowledge (budgetId, currentDeviceKnowledge,
		        currentDeviceKnowledgeForCalculations, deviceKnowledgeOfServer, serverKnowledgeOfDevice)
		      VALUES (?,?,?,?,?)`,
		Args: []any{
			budgetID, k.CurrentDeviceKnowledge, k.CurrentDeviceKnowledgeForCalculations,
			k.DeviceKnowledgeOfServer, k.ServerKnowledgeOfDevice,
		},
	}
}

// MaxBudgetEntityKnowledge finds the highest primary stamp assigned to any
// entity of the budget. The tracker seeds its counter above this value so a
// stale persisted counter row can never reissue a stamp.
func MaxBudgetEntityKnowledge(budgetID string) Query {
	return Query{
		Name: ResultBudgetKnowledgeFromEntities,
		SQL: `SELECT MAX(k) AS deviceKnowledge FROM (
		        SELECT MAX(deviceKnowledge) AS k FROM Accounts WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM MasterCategories WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM SubCategories WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM MonthlyBudgets WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM MonthlySubCategoryBudgets WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM Payees WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM PayeeLocations WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM PayeeRenameConditions WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM ScheduledTransactions WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM Settings WHERE budgetId = ?1
		        UNION ALL SELECT MAX(deviceKnowledge) FROM Transactions WHERE budgetId = ?1
		      )`,
		Args: []any{budgetID},
	}
}
