// server runs the background workers (failed-delivery redrive, password
// expiry notification) and serves the health and metrics endpoints. The HTTP
// API fronting the service packages is deployed separately and links them as
// a library.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"directory-console/backend/internal/audit"
	auditrepo "directory-console/backend/internal/audit/repository"
	"directory-console/backend/internal/config"
	"directory-console/backend/internal/db"
	"directory-console/backend/internal/directory"
	"directory-console/backend/internal/notify"
	notifyrepo "directory-console/backend/internal/notify/repository"
	"directory-console/backend/internal/obs"
	otpcoderepo "directory-console/backend/internal/otpcode/repository"
	otpcode "directory-console/backend/internal/otpcode/service"
	"directory-console/backend/internal/sms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL is required")
	}

	pg, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pg.Close()

	obs.Init()

	var smsSender *sms.Client
	if cfg.SMSConfigured() {
		smsSender = sms.NewClient(sms.Config{
			AccessKeyID:     cfg.AliyunAccessKeyID,
			AccessKeySecret: cfg.AliyunAccessKeySecret,
			SignName:        cfg.AliyunSignName,
			TemplateReset:   cfg.AliyunTemplateReset,
			TemplateNotify:  cfg.AliyunTemplateNotify,
		})
	}

	sup := notify.NewSupervisor(context.Background())
	defer sup.Stop()

	if cfg.SMSAutoRetry {
		if smsSender == nil {
			log.Println("sms redrive enabled but gateway not configured, skipping")
		} else {
			codeTTL := time.Duration(cfg.SMSCodeTTLSeconds) * time.Second
			sendInterval := time.Duration(cfg.SMSSendIntervalSeconds) * time.Second
			codes := otpcode.NewService(otpcoderepo.NewSMSRepository(pg), codeTTL, sendInterval)
			w := notify.NewRedriveWorker("sms", codes, smsSender)
			interval := time.Duration(cfg.SMSRetryIntervalSeconds) * time.Second
			if sup.StartIfNotRunning("sms-redrive", interval, w.RunOnce) {
				log.Printf("worker: sms redrive every %s", interval)
			}
		}
	}

	if cfg.PasswordExpiryEnable {
		if smsSender == nil {
			log.Println("password expiry notify enabled but gateway not configured, skipping")
		} else {
			dir := directory.New(directory.Config{
				URL:          cfg.LDAPURL,
				BindDN:       cfg.LDAPBindDN,
				BindPassword: cfg.LDAPBindPassword,
				BaseDN:       cfg.LDAPBaseDN,
				CACert:       cfg.LDAPCACert,
				TLSVerify:    cfg.LDAPTLSVerify,
			})
			recorder := audit.NewRecorder(auditrepo.NewPostgresRepository(pg))
			w := notify.NewExpiryWorker(dir, notifyrepo.NewPostgresNoticeRepository(pg),
				smsSender, recorder, cfg.ExpiryDayThresholds())
			interval := time.Duration(cfg.PasswordExpiryCheckIntervalSeconds) * time.Second
			if sup.StartIfNotRunning("password-expiry", interval, w.RunOnce) {
				log.Printf("worker: password expiry check every %s", interval)
			}
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("stopped")
}
