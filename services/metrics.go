package services

import "github.com/prometheus/client_golang/prometheus"

var (
	achievementsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_achievements_granted_total",
			Help: "Achievements granted, by achievement name",
		},
		[]string{"name"},
	)
	storyLikes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storyquest_story_likes_total",
			Help: "Total number of story likes",
		},
	)
	challengeSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_challenge_submissions_total",
			Help: "Challenge submissions by result",
		},
		[]string{"result"},
	)
)

// RegisterMetrics registers the domain counters. Call this from main.go
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(achievementsGranted, storyLikes, challengeSubmissions)
}
