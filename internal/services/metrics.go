package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_comments_created_total",
		Help: "Comments created, by kind (top_level or reply).",
	}, []string{"kind"})

	commentsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_comments_deleted_total",
		Help: "Comments removed, including cascaded replies.",
	})

	likeTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_like_toggles_total",
		Help: "Like toggles by outcome (liked, unliked, conflict).",
	}, []string{"outcome"})

	notificationsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_notifications_emitted_total",
		Help: "Notifications written, by type.",
	}, []string{"type"})

	treeBuildSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_comment_tree_build_seconds",
		Help:    "Time spent assembling comment trees.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"cache"})
)
