/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package router

import (
	"fmt"
	"strings"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

// Render builds the subject/body pair every channel receives for an
// event, so formatting lives in one place instead of per channel.
func Render(event domain.WarningEvent) delivery.Message {
	subject := fmt.Sprintf("[%s] Ring %d: %s", event.WarningLevel, event.RingNumber, event.IndicatorName)

	var body strings.Builder
	fmt.Fprintf(&body, "Warning %s (%s)\n", event.WarningID, event.WarningType)
	fmt.Fprintf(&body, "Ring: %d\n", event.RingNumber)
	fmt.Fprintf(&body, "Indicator: %s = %.3f (threshold %.3f, %s)\n", event.IndicatorName, event.IndicatorValue, event.ThresholdValue, event.ThresholdType)

	if event.RateOfChange != nil {
		fmt.Fprintf(&body, "Rate of change: %.3f (x%.2f historical mean)\n", *event.RateOfChange, derefOr(event.RateMultiplier, 0))
	}
	if event.PredictedValue != nil {
		fmt.Fprintf(&body, "Predicted value: %.3f (confidence %.2f, horizon %.1fh)\n", *event.PredictedValue, derefOr(event.PredictionConfidence, 0), derefOr(event.PredictionHorizonHours, 0))
	}
	if len(event.CombinedIndicators) > 0 {
		fmt.Fprintf(&body, "Combined with: %s\n", strings.Join(event.CombinedIndicators, ", "))
	}

	return delivery.Message{Event: event, Subject: subject, Body: body.String()}
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
