package models

import (
	"log"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Dataset{},
		&QlikState{},
		&Report{}, &UserReport{},
		&Bookmark{}, &BookmarkItem{}, &UserBookmark{},
		&Comment{}, &Reaction{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
