package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

func TestCreateRegionAndTeamNotify(t *testing.T) {
	m := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewRegionService(m.Regions(), notifier)
	ctx := context.Background()

	region, err := svc.CreateRegion(ctx, &CreateRegionRequest{Name: "  Coast "})
	require.NoError(t, err)
	assert.Equal(t, "Coast", region.Name)

	team, err := svc.CreateTeam(ctx, &CreateTeamRequest{Name: "Mombasa", RegionID: &region.ID})
	require.NoError(t, err)
	require.NotNil(t, team.Region)
	assert.Equal(t, region.ID, team.Region.ID)

	assert.Equal(t, []sse.EventType{sse.EventRegionCreated, sse.EventTeamCreated}, notifier.events)
}

func TestCreateTeamRejectsUnknownRegion(t *testing.T) {
	m := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewRegionService(m.Regions(), notifier)

	missing := uuid.NewString()
	_, err := svc.CreateTeam(context.Background(), &CreateTeamRequest{Name: "Lake", RegionID: &missing})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.CreateRegion(context.Background(), &CreateRegionRequest{Name: "   "})
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.Empty(t, notifier.events)
}
