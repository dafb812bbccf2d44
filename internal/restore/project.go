package restore

import (
	"context"
	"fmt"

	"keboola.io/project-restore/internal/storageapi"
)

// RestoreTriggers recreates triggers. Every trigger runs with a new token
// limited to the triggered component.
func (r *Restore) RestoreTriggers(ctx context.Context) error {
	triggers, err := loadManifest[BackupTrigger](ctx, r, triggersManifest)
	if err != nil {
		return err
	}

	for _, t := range triggers {
		if r.report("Restore trigger of configuration %s (component %q)", t.ConfigurationID, t.Component) {
			continue
		}
		r.log.Infof("Restoring trigger of configuration %s (component %q)", t.ConfigurationID, t.Component)

		token, err := r.api.CreateToken(ctx, storageapi.CreateTokenRequest{
			Description:      fmt.Sprintf("[_internal] Token for triggering %s", t.ConfigurationID),
			CanManageBuckets: true,
			ComponentAccess:  []string{t.Component},
		})
		if err != nil {
			return err
		}

		tableIDs := make([]string, 0, len(t.Tables))
		for _, table := range t.Tables {
			tableIDs = append(tableIDs, table.TableID)
		}
		if _, err := r.api.CreateTrigger(ctx, storageapi.Trigger{
			RunWithTokenID:        token.ID,
			Component:             t.Component,
			ConfigurationID:       t.ConfigurationID,
			CoolDownPeriodMinutes: t.CoolDownPeriodMinutes,
			TableIDs:              tableIDs,
		}); err != nil {
			return err
		}
	}
	return nil
}

// RestoreNotifications recreates notification subscriptions of the project.
func (r *Restore) RestoreNotifications(ctx context.Context) error {
	subscriptions, err := loadManifest[storageapi.NotificationSubscription](ctx, r, notificationsManifest)
	if err != nil {
		return err
	}

	for _, sub := range subscriptions {
		if r.report("Restore notification %q for %s", sub.Event, sub.Recipient.Address) {
			continue
		}
		r.log.Infof("Restoring notification %q for %s", sub.Event, sub.Recipient.Address)

		sub.ID = ""
		if _, err := r.api.CreateNotificationSubscription(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// RestorePermanentFiles uploads permanent files with their tags.
func (r *Restore) RestorePermanentFiles(ctx context.Context) error {
	files, err := loadManifest[BackupFile](ctx, r, permanentFilesManifest)
	if err != nil {
		return err
	}

	for _, f := range files {
		if r.report("Restore permanent file %s", f.Name) {
			continue
		}
		r.log.Infof("Restoring permanent file %s", f.Name)
		if err := r.restoreFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Restore) restoreFile(ctx context.Context, f BackupFile) error {
	content, err := r.source.Open(ctx, PermanentFileObject(f.ID))
	if err != nil {
		return err
	}
	defer content.Close()

	_, err = r.api.UploadFile(ctx, storageapi.UploadFileRequest{
		Name:        f.Name,
		IsPermanent: true,
		Tags:        f.Tags,
	}, content)
	return err
}
