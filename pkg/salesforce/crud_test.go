package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturing(object *string, fields *map[string]any, id string) *mockClient {
	return &mockClient{
		insertOneFn: func(_ context.Context, sObject string, record map[string]any) (string, error) {
			*object = sObject
			*fields = record
			return id, nil
		},
	}
}

func failing() *mockClient {
	return &mockClient{
		insertOneFn: func(context.Context, string, map[string]any) (string, error) {
			return "", errors.New("api error")
		},
	}
}

func TestCreateContact(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var object string
		var fields map[string]any
		id, err := CreateContact(context.Background(), capturing(&object, &fields, "003NEW"),
			map[string]any{"FirstName": "Jane", "LastName": "Doe"})
		require.NoError(t, err)
		assert.Equal(t, "003NEW", id)
		assert.Equal(t, SObjectContact, object)
		assert.Equal(t, "Doe", fields["LastName"])
	})

	t.Run("missing last name", func(t *testing.T) {
		_, err := CreateContact(context.Background(), &mockClient{}, map[string]any{"FirstName": "Jane"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "LastName is required")
	})

	t.Run("propagates error", func(t *testing.T) {
		_, err := CreateContact(context.Background(), failing(), map[string]any{"LastName": "Doe"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "create contact")
	})
}

func TestCreateOpportunity(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{"Name": "web-development Project", "StageName": "Prospecting", "CloseDate": "2026-04-01"}
	}

	t.Run("success", func(t *testing.T) {
		var object string
		var fields map[string]any
		id, err := CreateOpportunity(context.Background(), capturing(&object, &fields, "006NEW"), valid())
		require.NoError(t, err)
		assert.Equal(t, "006NEW", id)
		assert.Equal(t, SObjectOpportunity, object)
	})

	for _, missing := range []string{"Name", "StageName", "CloseDate"} {
		t.Run("missing "+missing, func(t *testing.T) {
			f := valid()
			delete(f, missing)
			_, err := CreateOpportunity(context.Background(), &mockClient{}, f)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), missing+" is required")
		})
	}

	t.Run("propagates error", func(t *testing.T) {
		_, err := CreateOpportunity(context.Background(), failing(), valid())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "create opportunity")
	})
}

func TestCreateCase(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var object string
		var fields map[string]any
		id, err := CreateCase(context.Background(), capturing(&object, &fields, "500NEW"),
			map[string]any{"Subject": "Chat lead", "ContactId": "003X"})
		require.NoError(t, err)
		assert.Equal(t, "500NEW", id)
		assert.Equal(t, SObjectCase, object)
		assert.Equal(t, "003X", fields["ContactId"])
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := CreateCase(context.Background(), &mockClient{}, map[string]any{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Subject is required")
	})

	t.Run("propagates error", func(t *testing.T) {
		_, err := CreateCase(context.Background(), failing(), map[string]any{"Subject": "s"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "create case")
	})
}

func TestLinkOpportunityContact(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var object string
		var fields map[string]any
		id, err := LinkOpportunityContact(context.Background(), capturing(&object, &fields, "00KNEW"), "006A", "003B")
		require.NoError(t, err)
		assert.Equal(t, "00KNEW", id)
		assert.Equal(t, SObjectOpportunityContactRole, object)
		assert.Equal(t, "006A", fields["OpportunityId"])
		assert.Equal(t, "003B", fields["ContactId"])
		assert.Equal(t, true, fields["IsPrimary"])
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := LinkOpportunityContact(context.Background(), &mockClient{}, "", "003B")
		assert.Error(t, err)
	})

	t.Run("propagates error", func(t *testing.T) {
		_, err := LinkOpportunityContact(context.Background(), failing(), "006A", "003B")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "link opportunity 006A to contact 003B")
	})
}
