package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/remindly/birthday-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createBirthdaysTable(),
		createRemindersTable(),
	})

	return m.Migrate()
}

func createBirthdaysTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_birthdays",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BirthdayModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_birthdays_settings ON birthdays (created_at) WHERE settings IS NOT NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BirthdayModel{})
		},
	}
}

func createRemindersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_reminders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ReminderModel{}); err != nil {
				return err
			}
			// Lookup indexes only. The (birthday_id, channel, recipient,
			// lead_time, target_year) tuple stays without a unique
			// constraint: dedup is application-level.
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (notify_at) WHERE is_scheduled = false AND is_sent = false`,
				`CREATE INDEX IF NOT EXISTS idx_reminders_birthday_id ON reminders (birthday_id)`,
				`CREATE INDEX IF NOT EXISTS idx_reminders_dedup ON reminders (birthday_id, channel, recipient, notify_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ReminderModel{})
		},
	}
}
