package restore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"keboola.io/project-restore/internal/storageapi"
)

// RestoreConfigs restores configurations with their rows, state and metadata.
func (r *Restore) RestoreConfigs(ctx context.Context, skipComponents []string, configurationIDs []string) error {
	components, err := loadManifest[BackupComponent](ctx, r, configurationsManifest)
	if err != nil {
		return err
	}

	for _, component := range components {
		if slices.Contains(skipComponents, component.ID) || len(component.Configurations) == 0 {
			continue
		}

		var selected []string
		for _, cfg := range component.Configurations {
			if len(configurationIDs) > 0 && !slices.Contains(configurationIDs, cfg.ID) {
				continue
			}
			selected = append(selected, cfg.ID)
		}
		if len(selected) == 0 {
			continue
		}

		if !r.dryRun {
			r.log.Infof("Restoring %s configurations", component.ID)
		}
		for _, id := range selected {
			if err := r.restoreConfig(ctx, component.ID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Restore) restoreConfig(ctx context.Context, componentID, configID string) error {
	var cfg BackupConfiguration
	if err := r.readJSON(ctx, ConfigurationObject(componentID, configID), &cfg); err != nil {
		return err
	}

	if r.dryRun {
		r.report("Restore configuration %s (component %q)", configID, componentID)
		for _, row := range cfg.Rows {
			r.report("Restore row %s of configuration %s (component %q)", row.ID, configID, componentID)
		}
		if !isEmptyJSON(cfg.State) {
			r.report("Restore state of configuration %s (component %q)", configID, componentID)
		}
		return nil
	}

	created, err := r.api.AddConfiguration(ctx, componentID, storageapi.Configuration{
		ID:                configID,
		Name:              cfg.Name,
		Description:       cfg.Description,
		Configuration:     nonEmpty(cfg.Configuration),
		ChangeDescription: fmt.Sprintf("Configuration %s restored from backup", configID),
		IsDisabled:        cfg.IsDisabled,
	})
	if err != nil {
		return err
	}

	for _, row := range cfg.Rows {
		createdRow, err := r.api.AddConfigurationRow(ctx, componentID, created.ID, storageapi.ConfigurationRow{
			ID:                row.ID,
			Name:              row.Name,
			Description:       row.Description,
			Configuration:     nonEmpty(row.Configuration),
			ChangeDescription: fmt.Sprintf("Row %s restored from backup", row.ID),
			IsDisabled:        row.IsDisabled,
		})
		if err != nil {
			return err
		}
		if !isEmptyJSON(row.State) {
			if err := r.api.UpdateConfigurationRowState(ctx, componentID, created.ID, createdRow.ID, row.State); err != nil {
				return err
			}
		}
	}

	if !isEmptyJSON(cfg.State) {
		if err := r.api.UpdateConfigurationState(ctx, componentID, created.ID, cfg.State); err != nil {
			return err
		}
	}

	return r.api.AddConfigurationMetadata(ctx, componentID, created.ID, cfg.Metadata)
}

// nonEmpty drops empty JSON documents, which older backups store as [].
func nonEmpty(raw json.RawMessage) json.RawMessage {
	if isEmptyJSON(raw) {
		return nil
	}
	return raw
}
