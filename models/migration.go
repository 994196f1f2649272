package models

import (
	"log"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{},
		&Warehouse{},
		&StockItem{},
		&Ticket{},
		&User{},
		&History{},
		&IntegrationConnection{}, &IntegrationSyncRun{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
