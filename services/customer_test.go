package services

import (
	"context"
	"testing"

	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCreateTrims(t *testing.T) {
	repo := newFakeCustomers()
	aud := &fakeAuditor{}
	svc := NewCustomerService(repo, aud)

	c, err := svc.Create(withActor("u1"), CustomerInput{Name: "  Hashworks  ", Email: " ops@hashworks.io "})
	require.NoError(t, err)
	assert.Equal(t, "Hashworks", c.Name)
	assert.Equal(t, "ops@hashworks.io", c.Email)
	assert.Equal(t, "u1", c.CreatedByID)
	assert.Equal(t, "customer", aud.last().Resource)

	_, err = svc.Create(withActor("u1"), CustomerInput{Name: "   "})
	require.Error(t, err)
}

func TestCustomerUpdate(t *testing.T) {
	repo := newFakeCustomers(models.Customer{ID: 1, Name: "Hashworks", Phone: "1"})
	aud := &fakeAuditor{}
	svc := NewCustomerService(repo, aud)

	c, err := svc.Update(context.Background(), 1, CustomerPatch{Phone: ptr(" +49 30 1234 ")})
	require.NoError(t, err)
	assert.Equal(t, "+49 30 1234", c.Phone)
	assert.Equal(t, "Hashworks", c.Name)
	assert.Equal(t, map[string]any{"phone": "+49 30 1234"}, aud.last().Details)

	_, err = svc.Update(context.Background(), 1, CustomerPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	_, err = svc.Update(context.Background(), 1, CustomerPatch{Name: ptr("  ")})
	require.Error(t, err)

	_, err = svc.Update(context.Background(), 2, CustomerPatch{Notes: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)
}

func TestCustomerDeleteGuardsReferences(t *testing.T) {
	repo := newFakeCustomers(models.Customer{ID: 1, Name: "A"}, models.Customer{ID: 2, Name: "B"}, models.Customer{ID: 3, Name: "C"})
	repo.workOrders[1] = 2
	repo.invoices[2] = 1
	aud := &fakeAuditor{}
	svc := NewCustomerService(repo, aud)

	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrCustomerInUse)
	assert.ErrorIs(t, svc.Delete(context.Background(), 2), ErrCustomerInUse)
	require.NoError(t, svc.Delete(context.Background(), 3))

	assert.Len(t, repo.items, 2)
	assert.Equal(t, 1, aud.count(audit.ActionDelete, audit.StatusSuccess))
}

func TestTechnicianLifecycle(t *testing.T) {
	repo := newFakeTechnicians()
	svc := NewTechnicianService(repo, &fakeAuditor{})

	tech, err := svc.Create(context.Background(), TechnicianInput{Name: "Ana", HourlyRate: 45.5})
	require.NoError(t, err)
	assert.True(t, tech.IsActive)
	assert.True(t, tech.HourlyRate.Equal(dec("45.5")))

	tech, err = svc.Update(context.Background(), tech.ID, TechnicianPatch{HourlyRate: ptr(50.0)})
	require.NoError(t, err)
	assert.True(t, tech.HourlyRate.Equal(dec("50")))

	repo.workOrders[tech.ID] = 1
	assert.ErrorIs(t, svc.Delete(context.Background(), tech.ID), ErrTechnicianInUse)

	repo.workOrders[tech.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), tech.ID))
}

func TestMinerModelDuplicate(t *testing.T) {
	svc := NewMinerModelService(newFakeMinerModels(), &fakeAuditor{})

	m, err := svc.Create(context.Background(), MinerModelInput{Brand: "Bitmain", Model: "S19 Pro", HashRate: "110 TH/s", Power: 3250})
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	_, err = svc.Create(context.Background(), MinerModelInput{Brand: "bitmain", Model: "s19 pro"})
	assert.ErrorIs(t, err, repository.ErrMinerModelExists)
}
