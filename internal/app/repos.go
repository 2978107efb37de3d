package app

import (
	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/repos"
)

type Repos struct {
	User    repos.UserRepo
	Dataset repos.DatasetRepo
	Sample  repos.SampleRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:    repos.NewUserRepo(db, log),
		Dataset: repos.NewDatasetRepo(db, log),
		Sample:  repos.NewSampleRepo(db, log),
	}
}
