package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks if the ResumeFragment class exists and creates or
// extends it as needed. Vectors are supplied by the application, never by a
// Weaviate vectorizer.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	className := "ResumeFragment"
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "userId",
			DataType: []string{"string"}, // email as string (exact match)
		},
		{
			Name:     "type",
			DataType: []string{"string"},
		},
		{
			Name:     "batch",
			DataType: []string{"string"}, // reindex generation UUID
		},
	}

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "One retrievable unit of a candidate's experience",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
