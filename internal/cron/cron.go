package cron

import (
	"context"
	"os"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

const (
	// GroupSync is the group for mailbox sync jobs
	GroupSync = "sync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupSync: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	cron   *cronv3.Cron
	k8s    kubernetes.Interface
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
	imap   interfaces.IMAPService
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, imapService interfaces.IMAPService) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		k8s:    k8s,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		imap:   imapService,
	}
}

// Start initializes and starts the cron manager with leader election.
// If k8s is nil, it will start in local mode without leader election.
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "onebox-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(context.Background())
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	schedule := cm.cfg.CronConfig.CronScheduleSyncEmails
	if schedule == "" {
		return
	}

	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		jobLocks.locks[GroupSync].Lock()
		defer jobLocks.locks[GroupSync].Unlock()
		cm.syncAllAccounts()
	})
	if err != nil {
		cm.log.Fatalf("Could not add email sync cron job: %v", err)
	}
	cm.jobIDs["sync_emails"] = id
	cm.log.Infof("Registered email sync job with schedule: %s", schedule)
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) syncAllAccounts() {
	cm.log.Info("Running scheduled email sync")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.syncAllAccounts")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	reports := cm.imap.SyncAllAccounts(ctx, false)
	for accountID, report := range reports {
		if len(report.Errors) > 0 {
			cm.log.Warnf("[%s] Scheduled sync finished with errors: %v", accountID, report.Errors)
			continue
		}
		cm.log.Infof("[%s] Scheduled sync processed %d of %d messages", accountID, report.TotalProcessed(), report.TotalAttempted())
	}
}
