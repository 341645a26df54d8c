// Package resolve aggregates pattern hits into the final technology
// report: confidence summing, version merging, the implies closure,
// exclusion of weaker conflicting detections and advisory requires
// flagging. Resolution is a pure pass over an immutable hit collection.
package resolve

import (
	"sort"

	"github.com/webinspectra/go-webinspectra/internal/models"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

// Resolve turns the raw hit set of one inspection into a Report.
func Resolve(hits []models.Hit, store *signatures.Store) *models.Report {
	detections := aggregate(hits, store)
	closeImplications(detections, store)
	applyExclusions(detections, store)
	flagMissingRequirements(detections, store)

	report := &models.Report{
		Technologies: make(map[string]*models.Detection, len(detections)),
	}
	for name, det := range detections {
		fillDetails(det, store)
		report.Technologies[name] = det
	}
	report.Count = len(report.Technologies)
	return report
}

// aggregate groups hits by technology. The breakdown map deduplicates by
// pattern key, and the aggregate confidence is the clamped sum over the
// deduplicated entries, so repeated matches of one rule never double
// count and re-resolving a resolved set is a no-op.
func aggregate(hits []models.Hit, store *signatures.Store) map[string]*models.Detection {
	detections := map[string]*models.Detection{}
	order := []string{}

	for _, hit := range hits {
		if store.ByName(hit.Technology) == nil {
			continue
		}
		det, ok := detections[hit.Technology]
		if !ok {
			det = &models.Detection{
				Name:      hit.Technology,
				Versions:  []string{},
				Breakdown: map[string]int{},
			}
			detections[hit.Technology] = det
			order = append(order, hit.Technology)
		}
		det.Breakdown[hit.BreakdownKey()] = hit.Confidence
		if hit.Version != "" && !contains(det.Versions, hit.Version) {
			det.Versions = append(det.Versions, hit.Version)
		}
	}

	for _, name := range order {
		det := detections[name]
		det.Confidence = clampedSum(det.Breakdown)
		if det.Confidence == 0 {
			delete(detections, name)
		}
	}
	return detections
}

// closeImplications adds implied technologies until a fixed point. The
// implied detection inherits the implier's aggregate confidence, capped
// by the relationship's confidence qualifier when present. Each
// technology is added at most once, so the loop terminates.
func closeImplications(detections map[string]*models.Detection, store *signatures.Store) {
	queue := make([]string, 0, len(detections))
	for name := range detections {
		queue = append(queue, name)
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		var current string
		current, queue = queue[0], queue[1:]
		source := detections[current]
		if source == nil {
			continue
		}
		for _, rel := range store.ByName(current).Implies {
			if _, exists := detections[rel.Name]; exists {
				continue
			}
			confidence := source.Confidence
			if rel.Confidence > 0 && rel.Confidence < confidence {
				confidence = rel.Confidence
			}
			if confidence == 0 {
				continue
			}
			detections[rel.Name] = &models.Detection{
				Name:       rel.Name,
				Versions:   []string{},
				Confidence: confidence,
				Breakdown:  map[string]int{"implies " + current: confidence},
				Implied:    true,
			}
			queue = append(queue, rel.Name)
		}
	}
}

// applyExclusions removes detections excluded by a stronger detection.
// Strength is aggregate confidence; on a tie a directly matched
// detection beats an implied one. Removals are collected first so the
// outcome does not depend on iteration order.
func applyExclusions(detections map[string]*models.Detection, store *signatures.Store) {
	excluded := map[string]struct{}{}
	for name, det := range detections {
		for _, rel := range store.ByName(name).Excludes {
			target, ok := detections[rel.Name]
			if !ok {
				continue
			}
			if det.Confidence > target.Confidence ||
				(det.Confidence == target.Confidence && !det.Implied && target.Implied) {
				excluded[rel.Name] = struct{}{}
			}
		}
	}
	for name := range excluded {
		delete(detections, name)
	}
}

// flagMissingRequirements marks detections whose required technologies
// are absent. Requirements are advisory: removing a detection here would
// contradict directly observed evidence.
func flagMissingRequirements(detections map[string]*models.Detection, store *signatures.Store) {
	for name, det := range detections {
		for _, rel := range store.ByName(name).Requires {
			if _, ok := detections[rel.Name]; !ok {
				det.MissingRequires = append(det.MissingRequires, rel.Name)
			}
		}
		sort.Strings(det.MissingRequires)
	}
}

// fillDetails copies the informational signature fields onto a detection.
func fillDetails(det *models.Detection, store *signatures.Store) {
	tech := store.ByName(det.Name)
	if tech == nil {
		return
	}
	det.Description = tech.Description
	det.Website = tech.Website
	det.CPE = tech.CPE
	det.Pricing = tech.Pricing
	det.OSS = tech.OSS
	det.SaaS = tech.SaaS
	det.Categories = store.CategoryNames(tech.Cats)
}

// ByCategory re-keys a report by category, each detection appearing
// under every category it belongs to. Groups are ordered by category
// priority, then id; categories are not partitions.
func ByCategory(report *models.Report, store *signatures.Store) []models.CategoryGroup {
	groups := map[int]*models.CategoryGroup{}

	names := make([]string, 0, len(report.Technologies))
	for name := range report.Technologies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		det := report.Technologies[name]
		tech := store.ByName(name)
		if tech == nil {
			continue
		}
		for _, id := range tech.Cats {
			cat, ok := store.Categories()[id]
			if !ok {
				continue
			}
			group, seen := groups[id]
			if !seen {
				group = &models.CategoryGroup{ID: id, Name: cat.Name, Priority: cat.Priority}
				groups[id] = group
			}
			group.Technologies = append(group.Technologies, det)
		}
	}

	out := make([]models.CategoryGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clampedSum(breakdown map[string]int) int {
	sum := 0
	for _, confidence := range breakdown {
		sum += confidence
	}
	if sum > 100 {
		sum = 100
	}
	if sum < 0 {
		sum = 0
	}
	return sum
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
