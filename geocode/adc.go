// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// KeyDisplayName is the display name of the API key looked up through ADC.
const KeyDisplayName = "Mailing Geocoding Key"

// APIKeyFromADC retrieves the geocoding API key from the Google Cloud
// project of the Application Default Credentials.
func APIKeyFromADC(ctx context.Context, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// user credentials without a quota project don't carry one
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	if projectID == "" {
		return "", errors.New("no project found in credentials and GOOGLE_CLOUD_PROJECT is not set")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the key string
		log.Printf("Found key resource '%s', retrieving secret...", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but its key string is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}

// ResolveAPIKey returns explicit if set, then GOOGLE_MAPS_API_KEY, then the
// key found through ADC. No key at all is not an error: the service will
// answer REQUEST_DENIED and every row will carry that reason.
func ResolveAPIKey(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		return key
	}

	log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

	key, err := APIKeyFromADC(ctx, KeyDisplayName)
	if err != nil {
		log.Printf("⚠️  Failed to retrieve API key via ADC: %v", err)

		return ""
	}

	log.Println("✅ Retrieved Google Maps API Key via ADC")

	return key
}
