// Package plot renders the report's figures as PNG files.
//
// Time series, quantile and ladder charts use go-chart. Month-by-month box
// plots and the day-of-year by year residual surface use gonum/plot, which
// has the box plot, heat map and contour plotters go-chart lacks.
package plot
