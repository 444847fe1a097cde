package engine

import (
	"context"

	"envelope/internal/core"
	applog "envelope/internal/log"
	"envelope/internal/storage"
)

// resolveDeviceID loads the persisted device identifier, generating and
// storing one on first run. Any failure is logged and the identifier
// degrades to empty: sync labeling suffers, local operation does not.
func (e *Engine) resolveDeviceID(ctx context.Context) string {
	results, err := e.store.ExecuteBatch(ctx, []storage.Query{
		storage.GetGlobalSetting(core.DeviceIDSettingName),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Device identity lookup failed, continuing without device id",
			applog.FieldError, err.Error())
		return ""
	}
	if rows := results[storage.ResultGlobalSettings]; len(rows) > 0 {
		if id := rows[0].Str("settingValue"); id != "" {
			return id
		}
	}

	id := core.NewEntityID()
	stamp := e.catalog.NextValue()
	_, err = e.store.ExecuteBatch(ctx, []storage.Query{
		storage.InsertGlobalSetting(core.GlobalSetting{
			SettingName:     core.DeviceIDSettingName,
			SettingValue:    id,
			DeviceKnowledge: stamp,
		}),
		storage.SaveCatalogKnowledge(e.catalog),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Device identity creation failed, continuing without device id",
			applog.FieldError, err.Error())
		return ""
	}

	e.logger.InfoContext(ctx, "Generated device identifier", applog.FieldDeviceID, id)
	return id
}
