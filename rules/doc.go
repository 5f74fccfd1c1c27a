// Package rules holds the pure domain rules of the betting pool: tax-id
// validation and formatting, ticket pricing and scoring, rankings and pool
// prizes. Nothing here touches storage or the network.
package rules
