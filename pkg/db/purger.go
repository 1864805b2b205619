package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

// StartPurgerDaemon deletes reports older than maxAge every interval until stopCh closes.
func StartPurgerDaemon(d Database, interval, maxAge time.Duration, stopCh <-chan struct{}) {
	logrus.Infof("starting purge daemon. Purge interval: %v, report max age: %v", interval, maxAge)
	wait.JitterUntil(func() { purge(d, maxAge) }, interval, .002, true, stopCh)
}

func purge(d Database, maxAge time.Duration) {
	logrus.Debug("Beginning report purge")

	deleted, err := d.PurgeReports(maxAge)
	if err != nil {
		logrus.Errorf("problem purging old reports: %v", err)
		return
	}
	logrus.Infof("Reports purged from DB: %v", deleted)
}
